package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

// ProgressReporter prints a carriage-return progress line while a sweep runs.
// It is a runner.Monitor: SweepStarted starts the ticker, SweepFinished stops it.
type ProgressReporter struct {
	collector *metrics.Collector
	interval  time.Duration
	writer    io.Writer

	mu       sync.Mutex
	done     chan struct{}
	finished chan struct{}
}

// NewProgressReporter creates a reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		collector: collector,
		interval:  interval,
		writer:    writer,
	}
}

func (p *ProgressReporter) SweepStarted(concurrency, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return // already running
	}
	p.done = make(chan struct{})
	p.finished = make(chan struct{})
	go p.run(total, p.done, p.finished)
}

func (p *ProgressReporter) SweepFinished(runner.Result) {
	p.mu.Lock()
	done, finished := p.done, p.finished
	p.done, p.finished = nil, nil
	p.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-finished
}

func (p *ProgressReporter) run(total int, done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Fprint(p.writer, ProgressLine(p.collector.Completed(), total, time.Since(p.collector.StartedAt())))
		case <-done:
			return
		}
	}
}

// ProgressLine formats one progress update.
func ProgressLine(completed int64, total int, elapsed time.Duration) string {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}
	return fmt.Sprintf("\r  Progress: %d/%d (%.0f req/s)", completed, total, rate)
}
