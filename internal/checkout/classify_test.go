package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type quotaError struct{}

func (*quotaError) Error() string { return "quota exhausted" }

func TestClassifyError(t *testing.T) {
	var syntaxErr *json.SyntaxError
	if err := json.Unmarshal([]byte("{x"), &struct{}{}); !errors.As(err, &syntaxErr) {
		t.Fatalf("expected json.SyntaxError, got %T", err)
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, TagTimeout},
		{"wrapped deadline", &url.Error{Op: "Post", URL: "http://x", Err: context.DeadlineExceeded}, TagTimeout},
		{"net timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutError{}}, TagTimeout},
		{"canceled", fmt.Errorf("step: %w", context.Canceled), TagCanceled},
		{"refused", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}, TagConnectionError},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), TagConnectionError},
		{"dns", &net.DNSError{Err: "no such host", Name: "carts"}, TagConnectionError},
		{"eof", &url.Error{Op: "Post", URL: "http://x", Err: io.EOF}, TagConnectionError},
		{"unexpected eof", io.ErrUnexpectedEOF, TagConnectionError},
		{"syntax", fmt.Errorf("decode: %w", syntaxErr), "exception_SyntaxError"},
		{"custom", fmt.Errorf("wrapped: %w", &quotaError{}), "exception_QuotaError"},
		{"plain", errors.New("boom"), "exception_ErrorString"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractCartID(t *testing.T) {
	tests := []struct {
		body    string
		wantID  string
		wantTag string
	}{
		{`{"cart_id":"abc-123"}`, "abc-123", ""},
		{`{"cart_id":17}`, "17", ""},
		{`{"cart_id":0}`, "", TagCartIDMissing},
		{`{"cart_id":{"v":1}}`, "", TagCartIDMissing},
		{`{"cart_id":true}`, "", TagCartIDMissing},
		{`[{"cart_id":"abc"}]`, "", TagCartIDMissing},
		{`{}`, "", TagCartIDMissing},
		{``, "", TagInvalidBody},
		{`not json`, "", TagInvalidBody},
	}

	for _, tt := range tests {
		id, tag := extractCartID([]byte(tt.body))
		if id != tt.wantID || tag != tt.wantTag {
			t.Errorf("extractCartID(%q) = (%q, %q), want (%q, %q)", tt.body, id, tag, tt.wantID, tt.wantTag)
		}
	}
}

func TestOutcomeConstructors(t *testing.T) {
	ok := Succeeded(5, nil)
	if !ok.Success || ok.Tag != TagSuccess || ok.Declined() {
		t.Errorf("Succeeded() = %+v", ok)
	}
	declined := Failed(TagPaymentDeclined, 5, nil)
	if declined.Success || !declined.Declined() {
		t.Errorf("Failed(payment_declined) = %+v", declined)
	}
	if CartCreationTag(500) != "cart_creation_500" || AddItemTag(404) != "add_item_404" || CheckoutTag(503) != "checkout_503" {
		t.Error("status tag helpers produced unexpected values")
	}
}
