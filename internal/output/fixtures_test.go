package output_test

import (
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

func sampleSummary() experiment.Summary {
	results := []runner.Result{
		{
			Name:            "10 workers",
			Concurrency:     10,
			Total:           1000,
			Throughput:      180.5,
			SuccessRate:     89.5,
			Duration:        5 * time.Second,
			DurationSeconds: 5,
			Stats: metrics.Stats{
				TotalRequests:   1000,
				Successful:      895,
				Failed:          105,
				PaymentDeclined: 100,
				Errors:          map[string]int64{"payment_declined": 100, "timeout": 5},
				Latency: metrics.LatencySummary{
					Count: 1000,
					P50:   40 * time.Millisecond, P50Ms: 40,
					P99:   150 * time.Millisecond, P99Ms: 150,
				},
			},
		},
		{
			Name:            "20 workers",
			Concurrency:     20,
			Total:           1000,
			Throughput:      310.25,
			SuccessRate:     90,
			Duration:        2900 * time.Millisecond,
			DurationSeconds: 2.9,
			Stats: metrics.Stats{
				TotalRequests:   1000,
				Successful:      900,
				Failed:          100,
				PaymentDeclined: 100,
				Errors:          map[string]int64{"payment_declined": 100},
				Latency:         metrics.LatencySummary{Count: 1000, P99: 90 * time.Millisecond, P99Ms: 90},
			},
		},
	}
	return experiment.Summary{
		RunID:   "01JABCDEFGHJKMNPQRSTVWXYZ0",
		Total:   1000,
		Results: results,
		Best:    experiment.SelectBest(results),
	}
}
