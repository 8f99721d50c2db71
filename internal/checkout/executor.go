package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZhuoyueLian/checkoutload/internal/httpclient"
	"github.com/ZhuoyueLian/checkoutload/internal/tracing"
)

const (
	// DefaultTimeout bounds each of the three requests of an instance.
	DefaultTimeout = 30 * time.Second

	maxResponseBody = 1 << 20
)

// SessionSource hands out one session per workflow instance.
type SessionSource interface {
	NewSession() (*httpclient.Session, error)
}

// Options configures an Executor.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	CardNumber string
	Sessions   SessionSource
	Tracer     trace.Tracer
	Propagate  bool
}

// Executor runs the create cart, add item, checkout workflow for one instance
// at a time. It is safe for concurrent use; every call gets its own session.
type Executor struct {
	base       string
	timeout    time.Duration
	cardNumber string
	sessions   SessionSource
	tracer     trace.Tracer
	propagate  bool
}

// New validates opts and builds an Executor.
func New(opts Options) (*Executor, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = httpclient.NewSessionFactory(nil, false)
	}

	return &Executor{
		base:       base,
		timeout:    timeout,
		cardNumber: opts.CardNumber,
		sessions:   sessions,
		tracer:     opts.Tracer,
		propagate:  opts.Propagate,
	}, nil
}

type createCartRequest struct {
	CustomerID string `json:"customer_id"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	CreditCardNumber string `json:"credit_card_number"`
}

// Execute runs instance index to completion and classifies the result. Faults
// never escape; they are reported as failed outcomes.
func (e *Executor) Execute(ctx context.Context, index int) Outcome {
	start := time.Now()
	ctx, span := tracing.StartTransactionSpan(ctx, e.tracer, index)

	outcome := e.execute(ctx, index, start)

	tracing.EndTransactionSpan(span, outcome.Success, outcome.Tag)
	return outcome
}

func (e *Executor) execute(ctx context.Context, index int, start time.Time) Outcome {
	steps := make([]StepTiming, 0, 3)
	fail := func(tag string) Outcome {
		return Failed(tag, time.Since(start), steps)
	}

	session, err := e.sessions.NewSession()
	if err != nil {
		return fail(ClassifyError(err))
	}
	defer session.Close()

	// Step 1: create cart.
	res, err := e.post(ctx, session, StepCreateCart, e.base+"/shopping-carts",
		createCartRequest{CustomerID: CustomerID(index)}, true)
	steps = append(steps, res.timing)
	if err != nil {
		return fail(ClassifyError(err))
	}
	if res.timing.Status != http.StatusCreated {
		return fail(CartCreationTag(res.timing.Status))
	}
	cartID, tag := extractCartID(res.body)
	if tag != "" {
		return fail(tag)
	}
	cartPath := e.base + "/shopping-carts/" + url.PathEscape(cartID)

	// Step 2: add item on the same session so the affinity cookie is presented.
	res, err = e.post(ctx, session, StepAddItem, cartPath+"/items",
		addItemRequest{ProductID: ProductID(index), Quantity: 1}, false)
	steps = append(steps, res.timing)
	if err != nil {
		return fail(ClassifyError(err))
	}
	if res.timing.Status != http.StatusOK {
		return fail(AddItemTag(res.timing.Status))
	}

	// Step 3: checkout.
	res, err = e.post(ctx, session, StepCheckout, cartPath+"/checkout",
		checkoutRequest{CreditCardNumber: e.cardNumber}, false)
	steps = append(steps, res.timing)
	if err != nil {
		return fail(ClassifyError(err))
	}
	switch res.timing.Status {
	case http.StatusOK:
		return Succeeded(time.Since(start), steps)
	case http.StatusPaymentRequired:
		return fail(TagPaymentDeclined)
	default:
		return fail(CheckoutTag(res.timing.Status))
	}
}

type stepResult struct {
	timing StepTiming
	body   []byte
}

// post sends one JSON request under its own timeout. The response body is
// always drained and closed; it is returned only when keepBody is set.
func (e *Executor) post(ctx context.Context, session *httpclient.Session, step, target string, payload any, keepBody bool) (stepResult, error) {
	res := stepResult{timing: StepTiming{Step: step}}
	started := time.Now()

	ctx, span := tracing.StartStepSpan(ctx, e.tracer, step)
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := func() error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if e.propagate {
			tracing.InjectHTTPHeaders(ctx, req.Header)
		}

		resp, err := session.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		res.timing.Status = resp.StatusCode

		if keepBody {
			res.body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
			if err != nil {
				return err
			}
		}
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}()

	res.timing.Latency = time.Since(started)
	attrs := []attribute.KeyValue{attribute.String("url.full", target)}
	if res.timing.Status != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", res.timing.Status))
	}
	tracing.EndSpan(span, err, attrs...)
	return res, err
}

// extractCartID returns the cart id from a create response, or the failure tag
// when the body is unusable. Empty, zero and null ids count as missing.
func extractCartID(body []byte) (string, string) {
	if !gjson.ValidBytes(body) {
		return "", TagInvalidBody
	}
	id := gjson.GetBytes(body, "cart_id")
	switch id.Type {
	case gjson.String:
		if id.Str != "" {
			return id.Str, ""
		}
	case gjson.Number:
		if id.Num != 0 {
			return id.Raw, ""
		}
	}
	return "", TagCartIDMissing
}
