package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

// ConsoleReporter prints experiment progress as plain text.
type ConsoleReporter struct {
	w io.Writer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = io.Discard
	}
	return &ConsoleReporter{w: w}
}

func (c *ConsoleReporter) SweepStarting(name string, concurrency, total int) {
	if name == experiment.WarmupName {
		fmt.Fprintf(c.w, "\nWarming up with %d requests at %d workers...\n", total, concurrency)
		return
	}
	PrintSweepHeader(c.w, name, concurrency, total)
}

func (c *ConsoleReporter) SweepCompleted(name string, res runner.Result) {
	if name == experiment.WarmupName {
		fmt.Fprintf(c.w, "\n  Warmup complete: %d/%d successful\n", res.Stats.Successful, res.Total)
		return
	}
	PrintSweepReport(c.w, res)
}

func (c *ConsoleReporter) Settling(d time.Duration) {
	fmt.Fprintf(c.w, "\nWaiting %s before next test...\n", d)
}
