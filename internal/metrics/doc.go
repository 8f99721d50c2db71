// Package metrics aggregates workflow outcomes for a sweep.
//
// A [Collector] is shared by all workers of a sweep. Record, Reset and
// Snapshot serialize on one mutex, which keeps every snapshot consistent:
//
//	TotalRequests == Successful + Failed
//	Failed == sum(Errors)
//	PaymentDeclined == Errors["payment_declined"]
//
// Transaction and per-step latencies go into HdrHistogram recorders so
// percentiles are available without retaining samples.
//
// [PrometheusCollector] bridges a Collector to a Prometheus registry for
// scraping while a run is in progress.
package metrics
