package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
)

// Track latencies from 1µs up to 5m with 3 significant figures.
const (
	lowestLatencyUs  = 1
	highestLatencyUs = 300_000_000
	sigFigs          = 3
)

// Collector aggregates workflow outcomes for one sweep. Every mutation and
// every read happens under a single mutex, so a Snapshot never observes a
// partially applied Record.
type Collector struct {
	mu              sync.Mutex
	total           int64
	successful      int64
	failed          int64
	paymentDeclined int64
	errors          map[string]int64
	latency         *latencyRecorder
	steps           map[string]*latencyRecorder
	start           time.Time
}

// Stats is a consistent copy of the collector state.
type Stats struct {
	TotalRequests   int64                     `json:"total_requests" yaml:"total_requests"`
	Successful      int64                     `json:"successful" yaml:"successful"`
	Failed          int64                     `json:"failed" yaml:"failed"`
	PaymentDeclined int64                     `json:"payment_declined" yaml:"payment_declined"`
	Errors          map[string]int64          `json:"errors" yaml:"errors"`
	Latency         LatencySummary            `json:"latency" yaml:"latency"`
	Steps           map[string]LatencySummary `json:"steps,omitempty" yaml:"steps,omitempty"`
	StartedAt       time.Time                 `json:"started_at" yaml:"started_at"`
}

// ErrorTotal sums the error breakdown. It equals Failed for any snapshot.
func (s Stats) ErrorTotal() int64 {
	var sum int64
	for _, n := range s.Errors {
		sum += n
	}
	return sum
}

// LatencySummary describes a latency distribution.
type LatencySummary struct {
	Count int64         `json:"count" yaml:"count"`
	Min   time.Duration `json:"-" yaml:"-"`
	Max   time.Duration `json:"-" yaml:"-"`
	Mean  time.Duration `json:"-" yaml:"-"`
	P50   time.Duration `json:"-" yaml:"-"`
	P90   time.Duration `json:"-" yaml:"-"`
	P95   time.Duration `json:"-" yaml:"-"`
	P99   time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinMs  float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs  float64 `json:"max_ms" yaml:"max_ms"`
	MeanMs float64 `json:"mean_ms" yaml:"mean_ms"`
	P50Ms  float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms  float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms  float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms  float64 `json:"p99_ms" yaml:"p99_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		errors:  make(map[string]int64),
		latency: newLatencyRecorder(),
		steps:   make(map[string]*latencyRecorder),
		start:   time.Now(),
	}
}

// Record folds one outcome into the aggregate.
func (c *Collector) Record(o checkout.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if o.Success {
		c.successful++
	} else {
		c.failed++
		c.errors[o.Tag]++
		if o.Tag == checkout.TagPaymentDeclined {
			c.paymentDeclined++
		}
	}

	c.latency.record(o.Latency)
	for _, step := range o.Steps {
		rec, ok := c.steps[step.Step]
		if !ok {
			rec = newLatencyRecorder()
			c.steps[step.Step] = rec
		}
		rec.record(step.Latency)
	}
}

// Reset clears all counters and histograms and restarts the clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = 0
	c.successful = 0
	c.failed = 0
	c.paymentDeclined = 0
	c.errors = make(map[string]int64)
	c.latency.reset()
	c.steps = make(map[string]*latencyRecorder)
	c.start = time.Now()
}

// Completed returns how many outcomes have been recorded since the last Reset.
func (c *Collector) Completed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// StartedAt returns when the collector was last reset.
func (c *Collector) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

// Snapshot returns a copy of the current aggregate.
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		TotalRequests:   c.total,
		Successful:      c.successful,
		Failed:          c.failed,
		PaymentDeclined: c.paymentDeclined,
		Errors:          make(map[string]int64, len(c.errors)),
		Latency:         c.latency.summary(),
		StartedAt:       c.start,
	}
	for tag, n := range c.errors {
		stats.Errors[tag] = n
	}
	if len(c.steps) > 0 {
		stats.Steps = make(map[string]LatencySummary, len(c.steps))
		for name, rec := range c.steps {
			stats.Steps[name] = rec.summary()
		}
	}
	return stats
}

type latencyRecorder struct {
	hist *hdrhistogram.Histogram
	min  time.Duration
	max  time.Duration
	sum  time.Duration
	n    int64
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{hist: hdrhistogram.New(lowestLatencyUs, highestLatencyUs, sigFigs)}
}

func (r *latencyRecorder) record(latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	us := latency.Microseconds()
	if us < r.hist.LowestTrackableValue() {
		us = r.hist.LowestTrackableValue()
	}
	if us > r.hist.HighestTrackableValue() {
		us = r.hist.HighestTrackableValue()
	}
	_ = r.hist.RecordValue(us)

	if r.n == 0 || latency < r.min {
		r.min = latency
	}
	if latency > r.max {
		r.max = latency
	}
	r.sum += latency
	r.n++
}

func (r *latencyRecorder) reset() {
	r.hist.Reset()
	r.min, r.max, r.sum, r.n = 0, 0, 0, 0
}

func (r *latencyRecorder) summary() LatencySummary {
	s := LatencySummary{Count: r.n}
	if r.n == 0 {
		return s
	}
	s.Min = r.min
	s.Max = r.max
	s.Mean = time.Duration(int64(r.sum) / r.n)
	s.P50 = quantile(r.hist, 50)
	s.P90 = quantile(r.hist, 90)
	s.P95 = quantile(r.hist, 95)
	s.P99 = quantile(r.hist, 99)

	s.MinMs = toMillis(s.Min)
	s.MaxMs = toMillis(s.Max)
	s.MeanMs = toMillis(s.Mean)
	s.P50Ms = toMillis(s.P50)
	s.P90Ms = toMillis(s.P90)
	s.P95Ms = toMillis(s.P95)
	s.P99Ms = toMillis(s.P99)
	return s
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
