package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Summary          experiment.Summary
	ThresholdSummary *ThresholdSummary
	ChartJSON        string
	Metadata         ReportMetadata
}

// ReportMetadata describes the run configuration shown in the report header.
type ReportMetadata struct {
	TargetURL string
	Rate      int
}

// ThresholdSummary counts threshold outcomes for display.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdResultJSON
}

type chartPoint struct {
	Concurrency int     `json:"concurrency"`
	Throughput  float64 `json:"throughput"`
	SuccessRate float64 `json:"success_rate"`
	P50Ms       float64 `json:"p50_ms"`
	P99Ms       float64 `json:"p99_ms"`
}

// GenerateHTMLReport writes a standalone HTML report comparing the sweeps.
func GenerateHTMLReport(w io.Writer, summary experiment.Summary, thresholdResults []threshold.Result, metadata ReportMetadata) error {
	var thresholdSummary *ThresholdSummary
	if len(thresholdResults) > 0 {
		thresholdSummary = &ThresholdSummary{
			Total:   len(thresholdResults),
			Results: NewReport(summary, thresholdResults).Thresholds,
		}
		for _, tr := range thresholdResults {
			if tr.Pass {
				thresholdSummary.Passed++
			} else {
				thresholdSummary.Failed++
			}
		}
	}

	points := make([]chartPoint, 0, len(summary.Results))
	for _, r := range summary.Results {
		points = append(points, chartPoint{
			Concurrency: r.Concurrency,
			Throughput:  r.Throughput,
			SuccessRate: r.SuccessRate,
			P50Ms:       r.Stats.Latency.P50Ms,
			P99Ms:       r.Stats.Latency.P99Ms,
		})
	}
	chartJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal chart data: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Summary:          summary,
		ThresholdSummary: thresholdSummary,
		ChartJSON:        string(chartJSON),
		Metadata:         metadata,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatMs": func(d time.Duration) string {
			return ms(d)
		},
		"isBest": func(concurrency int) bool {
			return summary.Best != nil && summary.Best.Concurrency == concurrency
		},
		"errorRows": metrics.FlattenErrors,
		"describe":  metrics.DescribeTag,
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Checkout Load Test Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #0f766e 0%, #1e3a8a 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #0f766e;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value { font-size: 2rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; margin-top: 5px; }
        .section { margin-bottom: 40px; }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e9ecef;
        }
        .chart { width: 100%; min-height: 300px; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { padding: 12px; text-align: left; border-bottom: 1px solid #e9ecef; }
        th { background: #f8f9fa; font-weight: 600; color: #495057; }
        tr.best { background: #ecfdf5; }
        .badge {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        ul.errors { margin-left: 20px; font-size: 0.85rem; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Checkout Load Test Report</h1>
            {{if .Metadata.TargetURL}}<div class="meta">Target: {{.Metadata.TargetURL}}</div>{{end}}
            <div class="meta">Run: {{.Summary.RunID}} | Generated: {{.GeneratedAt}} | Requests per sweep: {{.Summary.Total}}{{if .Metadata.Rate}} | Rate limit: {{.Metadata.Rate}}/s{{end}}</div>
        </header>

        <div class="content">
            {{with .Summary.Best}}
            <div class="grid">
                <div class="card">
                    <h3>Best Workers</h3>
                    <div class="value">{{.Concurrency}}</div>
                </div>
                <div class="card">
                    <h3>Best Throughput</h3>
                    <div class="value">{{formatFloat .Throughput}}</div>
                    <div class="subvalue">successful requests/second</div>
                </div>
                <div class="card">
                    <h3>Success Rate</h3>
                    <div class="value">{{formatFloat .SuccessRate}}%</div>
                    <div class="subvalue">{{.Stats.PaymentDeclined}} payments declined</div>
                </div>
                <div class="card">
                    <h3>P99 Latency</h3>
                    <div class="value">{{formatMs .Stats.Latency.P99}}</div>
                </div>
            </div>
            {{end}}

            {{if .Summary.Results}}
            <div class="section">
                <h2>Throughput by Concurrency</h2>
                <div id="throughput-chart" class="chart"></div>
            </div>

            <div class="section">
                <h2>Sweeps</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Workers</th>
                            <th>Throughput (req/s)</th>
                            <th>Success Rate</th>
                            <th>Failed</th>
                            <th>Declined</th>
                            <th>Duration (s)</th>
                            <th>P50</th>
                            <th>P99</th>
                            <th>Errors</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Summary.Results}}
                        <tr{{if isBest .Concurrency}} class="best"{{end}}>
                            <td><strong>{{.Concurrency}}</strong></td>
                            <td>{{formatFloat .Throughput}}</td>
                            <td>{{formatFloat .SuccessRate}}%</td>
                            <td>{{.Stats.Failed}}</td>
                            <td>{{.Stats.PaymentDeclined}}</td>
                            <td>{{formatFloat .DurationSeconds}}</td>
                            <td>{{formatMs .Stats.Latency.P50}}</td>
                            <td>{{formatMs .Stats.Latency.P99}}</td>
                            <td>
                                <ul class="errors">
                                {{range errorRows .Stats.Errors}}<li title="{{describe .Tag}}">{{.Tag}}: {{.Count}}</li>{{end}}
                                </ul>
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Metric</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}<span class="badge badge-success">✓ PASS</span>{{else}}<span class="badge badge-error">✗ FAIL</span>{{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .Summary.Results}}
    <script>
        const points = JSON.parse({{.ChartJSON}});
        if (points && points.length > 0) {
            new uPlot({
                width: document.getElementById('throughput-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Workers" },
                    { label: "Throughput", stroke: "#0f766e", width: 2 },
                    { label: "P99 (ms)", stroke: "#ef4444", width: 2, scale: "ms" }
                ],
                axes: [
                    { label: "Workers" },
                    { label: "Requests/sec" },
                    { label: "ms", scale: "ms", side: 1 }
                ]
            }, [
                points.map(p => p.concurrency),
                points.map(p => p.throughput),
                points.map(p => p.p99_ms)
            ], document.getElementById('throughput-chart'));
        }
    </script>
    {{end}}
</body>
</html>
`
