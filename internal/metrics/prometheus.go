package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkoutload"

// PrometheusCollector exposes the live sweep held by a Collector plus the
// results of completed sweeps. Live values are read from Snapshot at scrape
// time, so they restart whenever the Collector is reset.
type PrometheusCollector struct {
	source   *Collector
	registry *prometheus.Registry

	transactions    *prometheus.Desc
	paymentDeclined *prometheus.Desc
	errors          *prometheus.Desc
	latency         *prometheus.Desc

	sweepThroughput  *prometheus.GaugeVec
	sweepSuccessRate *prometheus.GaugeVec
	sweepDuration    *prometheus.GaugeVec
	sweepsCompleted  prometheus.Counter
}

// NewPrometheusCollector builds a dedicated registry around source.
func NewPrometheusCollector(source *Collector) *PrometheusCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	p := &PrometheusCollector{
		source:   source,
		registry: reg,
		transactions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sweep", "transactions"),
			"Workflow instances recorded in the running sweep, by result",
			[]string{"result"}, nil,
		),
		paymentDeclined: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sweep", "payment_declined"),
			"Checkouts declined by the payment authorizer in the running sweep",
			nil, nil,
		),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sweep", "errors"),
			"Failed workflow instances in the running sweep, by outcome tag",
			[]string{"tag"}, nil,
		),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sweep", "latency_seconds"),
			"Transaction latency quantiles in the running sweep",
			[]string{"quantile"}, nil,
		),
		sweepThroughput: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_throughput",
			Help:      "Successful transactions per second of the last completed sweep at each concurrency",
		}, []string{"concurrency"}),
		sweepSuccessRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_success_rate_percent",
			Help:      "Success rate of the last completed sweep at each concurrency",
		}, []string{"concurrency"}),
		sweepDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_duration_seconds",
			Help:      "Wall clock duration of the last completed sweep at each concurrency",
		}, []string{"concurrency"}),
		sweepsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_completed_total",
			Help:      "Sweeps that reached quiescence",
		}),
	}

	reg.MustRegister(p)
	reg.MustRegister(collectors.NewGoCollector())
	return p
}

// Describe implements prometheus.Collector.
func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.transactions
	ch <- p.paymentDeclined
	ch <- p.errors
	ch <- p.latency
}

// Collect implements prometheus.Collector.
func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	if p.source == nil {
		return
	}
	stats := p.source.Snapshot()

	ch <- prometheus.MustNewConstMetric(p.transactions, prometheus.GaugeValue, float64(stats.Successful), "successful")
	ch <- prometheus.MustNewConstMetric(p.transactions, prometheus.GaugeValue, float64(stats.Failed), "failed")
	ch <- prometheus.MustNewConstMetric(p.paymentDeclined, prometheus.GaugeValue, float64(stats.PaymentDeclined))
	for tag, n := range stats.Errors {
		ch <- prometheus.MustNewConstMetric(p.errors, prometheus.GaugeValue, float64(n), tag)
	}
	if stats.Latency.Count > 0 {
		for _, q := range []struct {
			label string
			value time.Duration
		}{
			{"0.5", stats.Latency.P50},
			{"0.9", stats.Latency.P90},
			{"0.95", stats.Latency.P95},
			{"0.99", stats.Latency.P99},
		} {
			ch <- prometheus.MustNewConstMetric(p.latency, prometheus.GaugeValue, q.value.Seconds(), q.label)
		}
	}
}

// ObserveSweep publishes the headline numbers of a completed sweep.
func (p *PrometheusCollector) ObserveSweep(concurrency int, throughput, successRate float64, duration time.Duration) {
	label := strconv.Itoa(concurrency)
	p.sweepThroughput.WithLabelValues(label).Set(throughput)
	p.sweepSuccessRate.WithLabelValues(label).Set(successRate)
	p.sweepDuration.WithLabelValues(label).Set(duration.Seconds())
	p.sweepsCompleted.Inc()
}

// Registry returns the registry the collector and sweep gauges live in.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
