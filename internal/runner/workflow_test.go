package runner_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/cartserver"
	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
	"github.com/ZhuoyueLian/checkoutload/internal/httpclient"
)

func customerIndex(t *testing.T, customerID string) int {
	t.Helper()
	i, err := strconv.Atoi(strings.TrimPrefix(customerID, "CUST-"))
	if err != nil {
		t.Errorf("unexpected customer id %q", customerID)
	}
	return i
}

// TestSweepAgainstCartService drives real sessions through a cart service that
// rejects every 7th cart and declines customers whose index ends in 3.
func TestSweepAgainstCartService(t *testing.T) {
	const total = 700

	cs := cartserver.New(cartserver.Options{
		FailCreate: func(customerID string) int {
			if customerIndex(t, customerID)%7 == 0 {
				return http.StatusServiceUnavailable
			}
			return 0
		},
		Decline: func(customerID string) bool {
			return customerIndex(t, customerID)%10 == 3
		},
		RequireAffinity: true,
	})
	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)

	transport := httpclient.NewTransport(16)
	t.Cleanup(transport.CloseIdleConnections)
	exec, err := checkout.New(checkout.Options{
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		CardNumber: "1234-5678-9012-3456",
		Sessions:   httpclient.NewSessionFactory(transport, false),
	})
	if err != nil {
		t.Fatalf("checkout.New() error = %v", err)
	}

	r, _ := newRunner(exec)
	res, err := r.Run(context.Background(), 16, total)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s := res.Stats
	if s.TotalRequests != total || s.TotalRequests != s.Successful+s.Failed || s.Failed != s.ErrorTotal() {
		t.Fatalf("invariants violated: %+v", s)
	}
	if got := s.Errors["cart_creation_503"]; got != 100 {
		t.Errorf("cart_creation_503 = %d, want 100", got)
	}
	if s.PaymentDeclined != 60 || s.Errors[checkout.TagPaymentDeclined] != 60 {
		t.Errorf("declined = %d (errors %d), want 60", s.PaymentDeclined, s.Errors[checkout.TagPaymentDeclined])
	}
	if s.Successful != 540 {
		t.Errorf("successful = %d, want 540", s.Successful)
	}
	if len(s.Errors) != 2 {
		t.Errorf("unexpected tags: %v", s.Errors)
	}

	counts := cs.Counts()
	if counts.Creates != total || counts.AddItems != 600 || counts.Checkouts != 600 {
		t.Errorf("server counts = %+v, want 700 creates and 600 add-items and checkouts", counts)
	}
	if counts.Orders != 540 || counts.Declined != 60 {
		t.Errorf("orders = %d declined = %d, want 540 and 60", counts.Orders, counts.Declined)
	}
	if res.Aborted {
		t.Error("completed sweep marked aborted")
	}
}
