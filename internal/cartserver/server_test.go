package cartserver_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/ZhuoyueLian/checkoutload/internal/cartserver"
)

func post(t *testing.T, h http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFullWorkflow(t *testing.T) {
	srv := cartserver.New(cartserver.Options{})

	rec := post(t, srv, "/shopping-carts", `{"customer_id":"CUST-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	cartID := gjson.Get(rec.Body.String(), "cart_id").String()
	if cartID == "" {
		t.Fatalf("create body missing cart_id: %s", rec.Body.String())
	}

	rec = post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-1","quantity":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add item status = %d, want 200", rec.Code)
	}
	rec = post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-1","quantity":2}`)
	if got := gjson.Get(rec.Body.String(), "items.0.quantity").Int(); got != 3 {
		t.Fatalf("merged quantity = %d, want 3", got)
	}

	rec = post(t, srv, "/shopping-carts/"+cartID+"/checkout", `{"credit_card_number":"1234-5678-9012-3456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if srv.OpenCarts() != 0 {
		t.Errorf("OpenCarts() = %d, want 0 after checkout", srv.OpenCarts())
	}

	counts := srv.Counts()
	if counts.Creates != 1 || counts.AddItems != 2 || counts.Checkouts != 1 || counts.Orders != 1 {
		t.Errorf("Counts() = %+v", counts)
	}
}

func TestCheckoutErrors(t *testing.T) {
	srv := cartserver.New(cartserver.Options{})
	rec := post(t, srv, "/shopping-carts", `{"customer_id":"CUST-2"}`)
	cartID := gjson.Get(rec.Body.String(), "cart_id").String()

	if rec := post(t, srv, "/shopping-carts/"+cartID+"/checkout", `{"credit_card_number":"1234-5678-9012-3456"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty cart checkout status = %d, want 400", rec.Code)
	}
	if rec := post(t, srv, "/shopping-carts/missing/items", `{"product_id":"PROD-1","quantity":1}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown cart status = %d, want 404", rec.Code)
	}

	post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-1","quantity":1}`)
	if rec := post(t, srv, "/shopping-carts/"+cartID+"/checkout", `{"credit_card_number":"not-a-card"}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("bad card status = %d, want 500", rec.Code)
	}
	if rec := post(t, srv, "/shopping-carts", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("create without customer status = %d, want 400", rec.Code)
	}
}

func TestDeclineHook(t *testing.T) {
	srv := cartserver.New(cartserver.Options{
		Decline: func(customerID string) bool { return customerID == "CUST-9" },
	})
	rec := post(t, srv, "/shopping-carts", `{"customer_id":"CUST-9"}`)
	cartID := gjson.Get(rec.Body.String(), "cart_id").String()
	post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-9","quantity":1}`)

	rec = post(t, srv, "/shopping-carts/"+cartID+"/checkout", `{"credit_card_number":"1234-5678-9012-3456"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("checkout status = %d, want 402", rec.Code)
	}
	if srv.Counts().Declined != 1 {
		t.Errorf("Declined = %d, want 1", srv.Counts().Declined)
	}
}

func TestFailCreateHook(t *testing.T) {
	srv := cartserver.New(cartserver.Options{
		FailCreate: func(string) int { return http.StatusServiceUnavailable },
	})
	if rec := post(t, srv, "/shopping-carts", `{"customer_id":"CUST-1"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("create status = %d, want 503", rec.Code)
	}
	if srv.OpenCarts() != 0 {
		t.Error("rejected create should not store a cart")
	}
}

func TestAffinityRequired(t *testing.T) {
	srv := cartserver.New(cartserver.Options{RequireAffinity: true})

	rec := post(t, srv, "/shopping-carts", `{"customer_id":"CUST-3"}`)
	cartID := gjson.Get(rec.Body.String(), "cart_id").String()
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cartserver.DefaultAffinityCookie {
		t.Fatalf("expected %s cookie, got %v", cartserver.DefaultAffinityCookie, cookies)
	}

	if rec := post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-3","quantity":1}`); rec.Code != http.StatusNotFound {
		t.Errorf("add item without cookie status = %d, want 404", rec.Code)
	}
	wrong := &http.Cookie{Name: cartserver.DefaultAffinityCookie, Value: "other-node"}
	if rec := post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-3","quantity":1}`, wrong); rec.Code != http.StatusNotFound {
		t.Errorf("add item with foreign cookie status = %d, want 404", rec.Code)
	}
	if rec := post(t, srv, "/shopping-carts/"+cartID+"/items", `{"product_id":"PROD-3","quantity":1}`, cookies[0]); rec.Code != http.StatusOK {
		t.Errorf("add item with cookie status = %d, want 200", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := cartserver.New(cartserver.Options{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if gjson.Get(rec.Body.String(), "status").String() != "healthy" {
		t.Errorf("health body = %s", rec.Body.String())
	}
}
