package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

// Threshold is a pass/fail assertion over an experiment summary.
type Threshold struct {
	Metric    string  // e.g. "transaction_duration", "throughput"
	Aggregate string  // e.g. "p99", "rate", "best", "min"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // compared against the extracted value
	Raw       string  // original text for display
}

// Result is the outcome of evaluating one Threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Per-sweep metrics are read from the best sweep; cross-sweep metrics
// aggregate over every sweep in Results.
var (
	sweepMetrics = map[string][]string{
		"transaction_duration": {"p50", "p90", "p95", "p99", "avg", "min", "max"},
		"transaction_failed":   {"rate", "count"},
		"payment_declined":     {"rate", "count"},
	}
	experimentMetrics = map[string][]string{
		"throughput":   {"best", "min", "avg", "max"},
		"success_rate": {"best", "min", "avg", "max"},
	}
	operators = []string{"<", "<=", ">", ">=", "=="}

	thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
)

var errNoResults = errors.New("no completed sweeps")

// Evaluator evaluates thresholds against experiment summaries.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against summary.
func (e *Evaluator) Evaluate(summary experiment.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, summary))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, summary experiment.Summary) Result {
	actual, err := extractValue(t, summary)
	if err != nil {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("✗ %s: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses "metric:aggregate operator value". Supported forms:
//   - "transaction_duration:p99 < 800"  (best sweep latency in ms)
//   - "transaction_failed:rate < 0.05"  (best sweep failure share, 0..1)
//   - "payment_declined:count <= 1000"  (best sweep declines)
//   - "throughput:best > 500"           (successful transactions per second)
//   - "success_rate:min >= 85"          (percent, across all sweeps)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, errors.New("empty threshold string")
	}

	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'throughput:best > 500')", s)
	}
	metric, aggregate, operator, raw := m[1], m[2], m[3], m[4]

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", raw, err)
	}

	allowed, ok := sweepMetrics[metric]
	if !ok {
		allowed, ok = experimentMetrics[metric]
	}
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: transaction_duration, transaction_failed, payment_declined, throughput, success_rate)", metric)
	}
	if !slices.Contains(allowed, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(allowed, ", "))
	}
	if !slices.Contains(operators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every entry and reports all failures together.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return result, nil
}

func extractValue(t Threshold, summary experiment.Summary) (float64, error) {
	if _, ok := experimentMetrics[t.Metric]; ok {
		return extractAcrossSweeps(t, summary.Results, summary.Best)
	}
	if summary.Best == nil {
		return 0, errNoResults
	}
	best := *summary.Best
	switch t.Metric {
	case "transaction_duration":
		return extractLatency(t.Aggregate, best)
	case "transaction_failed":
		return extractShare(t.Aggregate, best.Stats.Failed, best.Stats.TotalRequests)
	case "payment_declined":
		return extractShare(t.Aggregate, best.Stats.PaymentDeclined, best.Stats.TotalRequests)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatency(aggregate string, res runner.Result) (float64, error) {
	lat := res.Stats.Latency
	switch aggregate {
	case "p50":
		return lat.P50Ms, nil
	case "p90":
		return lat.P90Ms, nil
	case "p95":
		return lat.P95Ms, nil
	case "p99":
		return lat.P99Ms, nil
	case "avg":
		return lat.MeanMs, nil
	case "min":
		return lat.MinMs, nil
	case "max":
		return lat.MaxMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for transaction_duration", aggregate)
	}
}

func extractShare(aggregate string, part, total int64) (float64, error) {
	switch aggregate {
	case "count":
		return float64(part), nil
	case "rate":
		if total == 0 {
			return 0, nil
		}
		return float64(part) / float64(total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q (use 'count' or 'rate')", aggregate)
	}
}

func extractAcrossSweeps(t Threshold, results []runner.Result, best *runner.Result) (float64, error) {
	if len(results) == 0 {
		return 0, errNoResults
	}
	pick := func(r runner.Result) float64 {
		if t.Metric == "throughput" {
			return r.Throughput
		}
		return r.SuccessRate
	}

	switch t.Aggregate {
	case "best":
		if best == nil {
			return 0, errNoResults
		}
		return pick(*best), nil
	case "min", "max", "avg":
		lo, hi, sum, n := math.Inf(1), math.Inf(-1), 0.0, 0
		for _, r := range results {
			if r.Aborted {
				continue
			}
			n++
			v := pick(r)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		if n == 0 {
			return 0, errNoResults
		}
		switch t.Aggregate {
		case "min":
			return lo, nil
		case "max":
			return hi, nil
		default:
			return sum / float64(n), nil
		}
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
