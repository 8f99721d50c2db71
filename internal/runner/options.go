package runner

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
)

// Executor runs one workflow instance. Implementations must not panic across
// the call boundary on expected faults; they report them as outcomes.
type Executor interface {
	Execute(ctx context.Context, index int) checkout.Outcome
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, index int) checkout.Outcome

func (f ExecutorFunc) Execute(ctx context.Context, index int) checkout.Outcome {
	return f(ctx, index)
}

// Monitor observes sweep boundaries. Calls are made from the goroutine that
// invoked Run.
type Monitor interface {
	SweepStarted(concurrency, total int)
	SweepFinished(res Result)
}

// Options configure the Runner.
type Options struct {
	Executor       Executor                    // workflow executor (required)
	Collector      *metrics.Collector          // shared aggregate, reset per sweep (required)
	RatePerSecond  int                         // instances started per second (0 means unlimited)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	Monitors       []Monitor                   // notified at sweep start and finish
}

func (o *Options) normalize() {
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps instance starts evenly spaced.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
