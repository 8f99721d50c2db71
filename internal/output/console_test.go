package output_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/output"
)

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	rep := output.NewConsoleReporter(&buf)

	summary := sampleSummary()
	warm := summary.Results[0]
	warm.Total = 100
	warm.Stats.Successful = 90

	rep.SweepStarting("warmup", 10, 100)
	rep.SweepCompleted("warmup", warm)
	rep.Settling(5 * time.Second)
	rep.SweepStarting("20 workers", 20, 1000)
	rep.SweepCompleted("20 workers", summary.Results[1])

	out := buf.String()
	for _, want := range []string{
		"Warming up with 100 requests at 10 workers",
		"Warmup complete: 90/100 successful",
		"Waiting 5s before next test",
		"Load Test: 20 workers",
		"Workers: 20, Total Requests: 1000",
		"Throughput: 310.25 successful requests/second",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Load Test: warmup") {
		t.Error("warmup should not print a sweep header")
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	output.PrintBanner(&buf, "http://localhost:8080", 200000, []int{10, 20, 50})
	out := buf.String()
	if !strings.Contains(out, "Base URL: http://localhost:8080") || !strings.Contains(out, "Concurrency Levels: 10, 20, 50") {
		t.Errorf("banner = %q", out)
	}
}
