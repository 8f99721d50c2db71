package checkout

import (
	"fmt"
	"time"
)

// Outcome tags that are not tied to a status code.
const (
	TagSuccess         = "success"
	TagPaymentDeclined = "payment_declined"
	TagCartIDMissing   = "cart_id_missing"
	TagTimeout         = "timeout"
	TagConnectionError = "connection_error"
	TagInvalidBody     = "exception_invalid_json"
	TagPanic           = "exception_panic"
	TagCanceled        = "exception_canceled"
)

// Workflow steps, in execution order.
const (
	StepCreateCart = "create_cart"
	StepAddItem    = "add_item"
	StepCheckout   = "checkout"
)

// StepTiming records one attempted step of an instance. Status is zero when
// the request never produced a response.
type StepTiming struct {
	Step    string
	Status  int
	Latency time.Duration
}

// Outcome is the classified result of one workflow instance.
type Outcome struct {
	Success bool
	Tag     string
	Latency time.Duration
	Steps   []StepTiming
}

// Succeeded builds a successful outcome.
func Succeeded(latency time.Duration, steps []StepTiming) Outcome {
	return Outcome{Success: true, Tag: TagSuccess, Latency: latency, Steps: steps}
}

// Failed builds a failed outcome carrying tag.
func Failed(tag string, latency time.Duration, steps []StepTiming) Outcome {
	return Outcome{Tag: tag, Latency: latency, Steps: steps}
}

// Declined reports whether the checkout was refused by the payment authorizer.
// A decline is an expected business result, not a fault.
func (o Outcome) Declined() bool {
	return !o.Success && o.Tag == TagPaymentDeclined
}

func CartCreationTag(status int) string { return fmt.Sprintf("cart_creation_%d", status) }

func AddItemTag(status int) string { return fmt.Sprintf("add_item_%d", status) }

func CheckoutTag(status int) string { return fmt.Sprintf("checkout_%d", status) }

// CustomerID derives the synthetic customer identifier of instance index.
func CustomerID(index int) string { return fmt.Sprintf("CUST-%d", index) }

// ProductID derives the synthetic product identifier of instance index.
func ProductID(index int) string { return fmt.Sprintf("PROD-%d", index%1000) }
