package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
)

func scrape(t *testing.T, p *metrics.PrometheusCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(body)
}

func TestPrometheusCollectorExposesLiveSweep(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(outcome(checkout.TagSuccess, 20*time.Millisecond))
	c.Record(outcome(checkout.TagPaymentDeclined, 10*time.Millisecond))

	p := metrics.NewPrometheusCollector(c)
	text := scrape(t, p)
	for _, line := range []string{
		`checkoutload_sweep_payment_declined 1`,
		`checkoutload_sweep_transactions{result="failed"} 1`,
		`checkoutload_sweep_transactions{result="successful"} 1`,
		`checkoutload_sweep_errors{tag="payment_declined"} 1`,
		`checkoutload_sweep_latency_seconds{quantile="0.99"}`,
	} {
		if !strings.Contains(text, line) {
			t.Errorf("scrape missing %q", line)
		}
	}

	c.Reset()
	text = scrape(t, p)
	if !strings.Contains(text, `checkoutload_sweep_payment_declined 0`) {
		t.Error("live gauges should follow the collector after Reset")
	}
	if strings.Contains(text, `checkoutload_sweep_latency_seconds{`) {
		t.Error("latency quantiles should be absent for an empty sweep")
	}
}

func TestPrometheusCollectorObserveSweep(t *testing.T) {
	p := metrics.NewPrometheusCollector(metrics.NewCollector())
	p.ObserveSweep(50, 812.5, 89.9, 3*time.Second)
	p.ObserveSweep(100, 900, 90, 2*time.Second)

	text := scrape(t, p)
	for _, line := range []string{
		`checkoutload_result_throughput{concurrency="50"} 812.5`,
		`checkoutload_result_success_rate_percent{concurrency="100"} 90`,
		`checkoutload_result_duration_seconds{concurrency="50"} 3`,
		`checkoutload_sweeps_completed_total 2`,
	} {
		if !strings.Contains(text, line) {
			t.Errorf("scrape missing %q", line)
		}
	}
}
