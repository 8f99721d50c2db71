package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
	"github.com/ZhuoyueLian/checkoutload/internal/threshold"
)

const ruleWidth = 60

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, ruleWidth))
}

// PrintBanner writes the run header.
func PrintBanner(w io.Writer, baseURL string, total int, levels []int) {
	rule(w, "=")
	fmt.Fprintln(w, "Checkout Load Test")
	rule(w, "=")
	fmt.Fprintf(w, "Base URL: %s\n", baseURL)
	fmt.Fprintf(w, "Total Requests: %d\n", total)
	fmt.Fprintf(w, "Concurrency Levels: %s\n", joinInts(levels))
}

// PrintSweepHeader writes the block that opens a sweep.
func PrintSweepHeader(w io.Writer, name string, concurrency, total int) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "Load Test: %s\n", name)
	fmt.Fprintf(w, "Workers: %d, Total Requests: %d\n", concurrency, total)
	rule(w, "=")
}

// PrintSweepReport writes the per-sweep statistics block.
func PrintSweepReport(w io.Writer, res runner.Result) {
	s := res.Stats
	fmt.Fprintf(w, "\n  Completed: %d requests\n", s.TotalRequests)
	fmt.Fprintf(w, "  Duration: %.2f seconds\n", res.Duration.Seconds())
	fmt.Fprintf(w, "  Successful: %d (%.2f%%)\n", s.Successful, res.SuccessRate)
	fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "  Payment Declined: %d (%s of completed)\n", s.PaymentDeclined, percentOf(s.PaymentDeclined, s.TotalRequests))
	fmt.Fprintf(w, "  Throughput: %.2f successful requests/second\n", res.Throughput)

	if rows := metrics.FlattenErrors(s.Errors); len(rows) > 0 {
		fmt.Fprintln(w, "  Error breakdown:")
		for _, row := range rows {
			fmt.Fprintf(w, "    %s: %d\n", row.Tag, row.Count)
		}
	}

	if s.Latency.Count > 0 {
		fmt.Fprintln(w, "  Latency:")
		fmt.Fprintf(w, "    Min: %s  Mean: %s  Max: %s\n", ms(s.Latency.Min), ms(s.Latency.Mean), ms(s.Latency.Max))
		fmt.Fprintf(w, "    P50: %s  P90: %s  P95: %s  P99: %s\n", ms(s.Latency.P50), ms(s.Latency.P90), ms(s.Latency.P95), ms(s.Latency.P99))
	}
	for _, step := range []string{"create_cart", "add_item", "checkout"} {
		lat, ok := s.Steps[step]
		if !ok || lat.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "    %-12s p50=%s p99=%s (n=%d)\n", step, ms(lat.P50), ms(lat.P99), lat.Count)
	}
}

// PrintSummary writes the final comparison table and best configuration.
func PrintSummary(w io.Writer, summary experiment.Summary) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintln(w, "SUMMARY")
	rule(w, "=")
	fmt.Fprintf(w, "%-10s %-20s %-15s %-15s\n", "Workers", "Throughput (req/s)", "Success Rate", "Duration (s)")
	rule(w, "-")
	for _, r := range summary.Results {
		fmt.Fprintf(w, "%-10d %-20.2f %-15.2f %-15.2f", r.Concurrency, r.Throughput, r.SuccessRate, r.Duration.Seconds())
		if r.Aborted {
			fmt.Fprint(w, " (aborted)")
		}
		fmt.Fprintln(w)
	}

	if best := summary.Best; best != nil {
		fmt.Fprintln(w, "\nBest Configuration:")
		fmt.Fprintf(w, "  Workers: %d\n", best.Concurrency)
		fmt.Fprintf(w, "  Throughput: %.2f req/s\n", best.Throughput)
		fmt.Fprintf(w, "  Success Rate: %.2f%%\n", best.SuccessRate)
	}
	fmt.Fprintln(w)
	rule(w, "=")
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run %s complete\n", summary.RunID)
	} else {
		fmt.Fprintln(w, "Load testing complete")
	}
	rule(w, "=")
}

// PrintThresholdResults writes one line per evaluated threshold.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(w, "\nThresholds: %d/%d passed\n", passed, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// Report is the machine-readable document for --output json|yaml.
type Report struct {
	experiment.Summary `yaml:",inline"`
	Thresholds         []ThresholdResultJSON `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// ThresholdResultJSON is the serialized form of a threshold.Result.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Metric    string  `json:"metric" yaml:"metric"`
	Aggregate string  `json:"aggregate" yaml:"aggregate"`
	Operator  string  `json:"operator" yaml:"operator"`
	Expected  float64 `json:"expected" yaml:"expected"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

// NewReport bundles a summary with its threshold outcomes.
func NewReport(summary experiment.Summary, results []threshold.Result) Report {
	report := Report{Summary: summary}
	for _, r := range results {
		report.Thresholds = append(report.Thresholds, ThresholdResultJSON{
			Threshold: r.Threshold.Raw,
			Metric:    r.Threshold.Metric,
			Aggregate: r.Threshold.Aggregate,
			Operator:  r.Threshold.Operator,
			Expected:  r.Threshold.Value,
			Actual:    r.Actual,
			Pass:      r.Pass,
		})
	}
	return report
}

// PrintJSONReport outputs an indented JSON report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintYAMLReport outputs a YAML report.
func PrintYAMLReport(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

func percentOf(part, total int64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
