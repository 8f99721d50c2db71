package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ZhuoyueLian/checkoutload/internal/output"
	"github.com/ZhuoyueLian/checkoutload/internal/threshold"
)

func TestPrintSweepReport(t *testing.T) {
	res := sampleSummary().Results[0]

	var buf bytes.Buffer
	output.PrintSweepReport(&buf, res)
	out := buf.String()

	for _, want := range []string{
		"Completed: 1000 requests",
		"Duration: 5.00 seconds",
		"Successful: 895 (89.50%)",
		"Failed: 105",
		"Payment Declined: 100 (10.0% of completed)",
		"Throughput: 180.50 successful requests/second",
		"Error breakdown:",
		"P99: 150.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	// Largest count first.
	if strings.Index(out, "payment_declined: 100") > strings.Index(out, "timeout: 5") {
		t.Errorf("error breakdown not ordered by count:\n%s", out)
	}
}

func TestPrintSweepReportOmitsEmptySections(t *testing.T) {
	res := sampleSummary().Results[0]
	res.Stats.Errors = nil
	res.Stats.Latency.Count = 0

	var buf bytes.Buffer
	output.PrintSweepReport(&buf, res)
	if strings.Contains(buf.String(), "Error breakdown") || strings.Contains(buf.String(), "Latency:") {
		t.Errorf("unexpected sections:\n%s", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	output.PrintSummary(&buf, sampleSummary())
	out := buf.String()

	if !strings.Contains(out, "SUMMARY") {
		t.Error("missing SUMMARY header")
	}
	if !strings.Contains(out, "10         180.50") || !strings.Contains(out, "20         310.25") {
		t.Errorf("table rows missing:\n%s", out)
	}
	if !strings.Contains(out, "Best Configuration:\n  Workers: 20") {
		t.Errorf("best configuration missing:\n%s", out)
	}
}

func TestPrintSummaryWithoutResults(t *testing.T) {
	summary := sampleSummary()
	summary.Results = nil
	summary.Best = nil

	var buf bytes.Buffer
	output.PrintSummary(&buf, summary)
	if strings.Contains(buf.String(), "Best Configuration") {
		t.Errorf("best configuration printed without results:\n%s", buf.String())
	}
}

func TestPrintSummaryMarksAbortedSweep(t *testing.T) {
	summary := sampleSummary()
	summary.Results[1].Aborted = true
	summary.Best = &summary.Results[0]

	var buf bytes.Buffer
	output.PrintSummary(&buf, summary)
	out := buf.String()
	if strings.Count(out, "(aborted)") != 1 {
		t.Errorf("expected one aborted row:\n%s", out)
	}
	if !strings.Contains(out, "Best Configuration:\n  Workers: 10") {
		t.Errorf("best configuration should be the completed sweep:\n%s", out)
	}
}

func TestPrintThresholdResults(t *testing.T) {
	var buf bytes.Buffer
	output.PrintThresholdResults(&buf, []threshold.Result{
		{Pass: true, Message: "✓ throughput:best > 100: 310.25 > 100.00"},
		{Pass: false, Message: "✗ success_rate:min >= 95: 89.50 >= 95.00"},
	})
	out := buf.String()
	if !strings.Contains(out, "Thresholds: 1/2 passed") || !strings.Contains(out, "✗ success_rate") {
		t.Errorf("unexpected threshold output:\n%s", out)
	}

	buf.Reset()
	output.PrintThresholdResults(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for no thresholds, got %q", buf.String())
	}
}

func sampleThresholds(t *testing.T) []threshold.Result {
	t.Helper()
	ths, err := threshold.ParseMultiple([]string{"throughput:best > 300", "success_rate:min >= 95"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	return threshold.NewEvaluator(ths).Evaluate(sampleSummary())
}

func TestPrintJSONReport(t *testing.T) {
	report := output.NewReport(sampleSummary(), sampleThresholds(t))

	var buf bytes.Buffer
	if err := output.PrintJSONReport(&buf, report); err != nil {
		t.Fatalf("PrintJSONReport() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"run_id", "total", "results", "best", "thresholds"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing %q", key)
		}
	}
	best := decoded["best"].(map[string]interface{})
	if best["concurrency"].(float64) != 20 {
		t.Errorf("best concurrency = %v, want 20", best["concurrency"])
	}
	if _, ok := best["Duration"]; ok {
		t.Error("raw duration should not be serialized")
	}
	ths := decoded["thresholds"].([]interface{})
	if len(ths) != 2 || ths[0].(map[string]interface{})["pass"] != true || ths[1].(map[string]interface{})["pass"] != false {
		t.Errorf("thresholds = %v", ths)
	}
}

func TestPrintYAMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.PrintYAMLReport(&buf, output.NewReport(sampleSummary(), nil)); err != nil {
		t.Fatalf("PrintYAMLReport() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if decoded["run_id"] != "01JABCDEFGHJKMNPQRSTVWXYZ0" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	results, ok := decoded["results"].([]interface{})
	if !ok || len(results) != 2 {
		t.Fatalf("results = %v", decoded["results"])
	}
	if _, ok := decoded["thresholds"]; ok {
		t.Error("thresholds should be omitted when empty")
	}
}
