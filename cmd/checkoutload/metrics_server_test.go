package main

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

func TestMetricsServerPublishesSweeps(t *testing.T) {
	prom := metrics.NewPrometheusCollector(metrics.NewCollector())
	srv, err := startMetricsServer("127.0.0.1:0", prom.Handler(), zap.NewNop())
	if err != nil {
		t.Fatalf("startMetricsServer() error = %v", err)
	}
	defer srv.Close()

	pub := &sweepPublisher{prom: prom}
	pub.SweepCompleted("warmup", runner.Result{Concurrency: 10, Throughput: 999})
	pub.SweepCompleted("20 workers", runner.Result{Concurrency: 20, Throughput: 321, SuccessRate: 90, Duration: 2 * time.Second})

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	if err != nil {
		t.Skipf("metrics server unreachable: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	if !strings.Contains(text, `checkoutload_result_throughput{concurrency="20"} 321`) {
		t.Errorf("missing sweep throughput:\n%s", text)
	}
	if strings.Contains(text, `concurrency="10"`) {
		t.Error("warmup should not be published")
	}
	if !strings.Contains(text, "checkoutload_sweeps_completed_total 1") {
		t.Errorf("missing sweep counter:\n%s", text)
	}
}

func TestStartMetricsServerBadAddress(t *testing.T) {
	if _, err := startMetricsServer("not-an-address", http.NotFoundHandler(), zap.NewNop()); err == nil {
		t.Fatal("expected listen error")
	}
}
