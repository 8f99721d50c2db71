package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

// startMetricsServer binds addr before returning so a bad address fails the run.
func startMetricsServer(addr string, handler http.Handler, logger *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", srv.Addr))
	return srv, nil
}

// sweepPublisher exports each compared sweep to Prometheus.
type sweepPublisher struct {
	prom *metrics.PrometheusCollector
}

func (p *sweepPublisher) SweepStarting(string, int, int) {}

func (p *sweepPublisher) SweepCompleted(name string, res runner.Result) {
	if name == experiment.WarmupName {
		return
	}
	p.prom.ObserveSweep(res.Concurrency, res.Throughput, res.SuccessRate, res.Duration)
}

func (p *sweepPublisher) Settling(time.Duration) {}
