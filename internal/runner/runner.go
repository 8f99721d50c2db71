package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
)

// Result summarizes one sweep. It is not modified after Run returns. Aborted
// marks a partial sweep cut short by an error or interrupt.
type Result struct {
	Name            string        `json:"name" yaml:"name"`
	Concurrency     int           `json:"concurrency" yaml:"concurrency"`
	Total           int           `json:"total" yaml:"total"`
	Throughput      float64       `json:"throughput" yaml:"throughput"`
	SuccessRate     float64       `json:"success_rate" yaml:"success_rate"`
	Duration        time.Duration `json:"-" yaml:"-"`
	DurationSeconds float64       `json:"duration_seconds" yaml:"duration_seconds"`
	Stats           metrics.Stats `json:"stats" yaml:"stats"`
	Aborted         bool          `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// Throughput is successful instances per second; zero when no time elapsed.
func Throughput(successful int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(successful) / d.Seconds()
}

// SuccessRate is the successful share of total as a percentage; zero when
// total is zero.
func SuccessRate(successful int64, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

// Runner drives sweeps: a fixed pool of workers pulling instance indices from
// a single channel.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run executes total instances with exactly concurrency workers and returns
// once every dispatched instance has been recorded. If ctx is cancelled,
// dispatch stops, in-flight instances finish, and the partial result is
// returned together with the context error.
func (r *Runner) Run(ctx context.Context, concurrency, total int) (Result, error) {
	if concurrency < 1 {
		return Result{}, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	if total < 0 {
		return Result{}, fmt.Errorf("total must be >= 0, got %d", total)
	}
	if r.opt.Executor == nil {
		return Result{}, errors.New("runner: executor is required")
	}
	if r.opt.Collector == nil {
		return Result{}, errors.New("runner: collector is required")
	}

	collector := r.opt.Collector
	limiter := r.opt.LimiterFactory(r.opt.RatePerSecond)

	collector.Reset()
	start := time.Now()
	for _, m := range r.opt.Monitors {
		m.SweepStarted(concurrency, total)
	}

	indices := make(chan int)
	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for idx := range indices {
				collector.Record(r.execute(ctx, idx))
			}
			return nil
		})
	}

	// Scheduler: serializes pacing so workers never burst past the limit.
	var dispatchErr error
dispatch:
	for i := 0; i < total; i++ {
		if err := limiter.Wait(ctx); err != nil {
			dispatchErr = ctx.Err()
			if dispatchErr == nil {
				dispatchErr = err
			}
			break
		}
		select {
		case indices <- i:
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		}
	}
	close(indices)
	_ = g.Wait()

	duration := time.Since(start)
	stats := collector.Snapshot()
	res := Result{
		Name:            fmt.Sprintf("%d workers", concurrency),
		Concurrency:     concurrency,
		Total:           total,
		Throughput:      Throughput(stats.Successful, duration),
		SuccessRate:     SuccessRate(stats.Successful, total),
		Duration:        duration,
		DurationSeconds: duration.Seconds(),
		Stats:           stats,
		Aborted:         dispatchErr != nil,
	}
	for _, m := range r.opt.Monitors {
		m.SweepFinished(res)
	}
	return res, dispatchErr
}

// execute runs one instance, converting a panic into a failed outcome so a
// faulty executor cannot take down the pool.
func (r *Runner) execute(ctx context.Context, idx int) (out checkout.Outcome) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out = checkout.Failed(checkout.TagPanic, time.Since(start), nil)
		}
	}()
	return r.opt.Executor.Execute(ctx, idx)
}
