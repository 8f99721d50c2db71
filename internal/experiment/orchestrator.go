package experiment

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

// Sweeper runs one sweep at a fixed concurrency. *runner.Runner satisfies it.
type Sweeper interface {
	Run(ctx context.Context, concurrency, total int) (runner.Result, error)
}

// Reporter receives experiment progress in order.
type Reporter interface {
	SweepStarting(name string, concurrency, total int)
	SweepCompleted(name string, res runner.Result)
	Settling(d time.Duration)
}

// Plan describes one experiment.
type Plan struct {
	Levels            []int
	Total             int
	Warmup            int
	WarmupConcurrency int
	WarmupSettle      time.Duration
	SweepSettle       time.Duration
}

// Summary is the outcome of an experiment. Results keep the order of
// Plan.Levels; Best points into Results.
type Summary struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Total      int             `json:"total" yaml:"total"`
	Warmup     *runner.Result  `json:"warmup,omitempty" yaml:"warmup,omitempty"`
	Results    []runner.Result `json:"results" yaml:"results"`
	Best       *runner.Result  `json:"best,omitempty" yaml:"best,omitempty"`
}

// WarmupName is the sweep name reported for the warmup.
const WarmupName = "warmup"

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter adds a progress reporter.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporters = append(o.reporters, r)
		}
	}
}

// WithLogger sets the lifecycle logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSleep replaces the settle delay, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithRunID fixes the run id instead of minting one when Run starts.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// Orchestrator runs the warmup and the ordered concurrency sweeps.
type Orchestrator struct {
	sweeper   Sweeper
	runID     string
	reporters []Reporter
	log       *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

func New(sweeper Sweeper, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sweeper: sweeper,
		log:     zap.NewNop(),
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes plan. On the first sweep error it stops and returns the partial
// Summary together with the wrapped error.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (Summary, error) {
	if o.sweeper == nil {
		return Summary{}, errors.New("experiment: sweeper is required")
	}
	if len(plan.Levels) == 0 {
		return Summary{}, errors.New("experiment: at least one concurrency level is required")
	}
	if plan.WarmupConcurrency <= 0 {
		plan.WarmupConcurrency = 10
	}

	started := o.now()
	runID := o.runID
	if runID == "" {
		runID = NewRunID(started)
	}
	summary := Summary{
		RunID:     runID,
		StartedAt: started,
		Total:     plan.Total,
		Results:   make([]runner.Result, 0, len(plan.Levels)),
	}
	log := o.log.With(zap.String("run_id", summary.RunID))
	log.Info("experiment starting",
		zap.Ints("levels", plan.Levels),
		zap.Int("total", plan.Total),
		zap.Int("warmup", plan.Warmup),
	)

	finish := func(err error) (Summary, error) {
		summary.FinishedAt = o.now()
		summary.Best = SelectBest(summary.Results)
		return summary, err
	}

	if plan.Warmup > 0 {
		res, err := o.sweep(ctx, log, WarmupName, plan.WarmupConcurrency, plan.Warmup)
		summary.Warmup = &res
		if err != nil {
			return finish(fmt.Errorf("warmup: %w", err))
		}
		if err := o.settle(ctx, plan.WarmupSettle); err != nil {
			return finish(err)
		}
	}

	for i, level := range plan.Levels {
		name := fmt.Sprintf("%d workers", level)
		res, err := o.sweep(ctx, log, name, level, plan.Total)
		summary.Results = append(summary.Results, res)
		if err != nil {
			return finish(fmt.Errorf("sweep %s: %w", name, err))
		}
		if i < len(plan.Levels)-1 {
			if err := o.settle(ctx, plan.SweepSettle); err != nil {
				return finish(err)
			}
		}
	}

	summary, err := finish(nil)
	if summary.Best != nil {
		log.Info("experiment finished",
			zap.Int("best_concurrency", summary.Best.Concurrency),
			zap.Float64("best_throughput", summary.Best.Throughput),
		)
	}
	return summary, err
}

func (o *Orchestrator) sweep(ctx context.Context, log *zap.Logger, name string, concurrency, total int) (runner.Result, error) {
	for _, r := range o.reporters {
		r.SweepStarting(name, concurrency, total)
	}
	log.Debug("sweep starting", zap.String("sweep", name), zap.Int("concurrency", concurrency), zap.Int("total", total))

	res, err := o.sweeper.Run(ctx, concurrency, total)
	res.Name = name
	if err != nil {
		res.Aborted = true
		log.Warn("sweep aborted", zap.String("sweep", name), zap.Error(err))
		return res, err
	}

	log.Debug("sweep completed",
		zap.String("sweep", name),
		zap.Duration("duration", res.Duration),
		zap.Float64("throughput", res.Throughput),
		zap.Float64("success_rate", res.SuccessRate),
	)
	for _, r := range o.reporters {
		r.SweepCompleted(name, res)
	}
	return res, nil
}

func (o *Orchestrator) settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	for _, r := range o.reporters {
		r.Settling(d)
	}
	return o.sleep(ctx, d)
}

// SelectBest returns the completed result with strictly maximal throughput; the first
// one wins a tie. It returns nil for an empty slice.
func SelectBest(results []runner.Result) *runner.Result {
	best := -1
	for i := range results {
		if results[i].Aborted {
			continue
		}
		if best < 0 || results[i].Throughput > results[best].Throughput {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return &results[best]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewRunID mints a ULID stamped with t.
func NewRunID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
