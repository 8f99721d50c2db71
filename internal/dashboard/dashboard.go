package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
)

// TestConfig holds experiment parameters for display.
type TestConfig struct {
	TargetURL  string
	Levels     []int
	Total      int
	Warmup     int
	Rate       int
	Timeout    time.Duration
	ConfigFile string
}

// Dashboard renders a live terminal UI for an experiment. It observes sweep
// boundaries as a runner.Monitor and experiment progress as a Reporter.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	metricsPara    *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	errorList      *widgets.List
	sweepList      *widgets.List

	latencyHistory []float64
	startTime      time.Time
	testConfig     TestConfig

	sweepName  string
	sweepTotal int
	status     string
	completed  []runner.Result
}

// New creates a Dashboard. shutdownFunc is invoked when the operator presses
// q or Ctrl-C.
func New(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	d := newDashboard(collector, cfg, shutdownFunc)
	d.setupGrid()
	return d, nil
}

func newDashboard(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		testConfig:     cfg,
		status:         "Starting",
	}
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Experiment"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Sweep Progress"
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Current Sweep"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Mean latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}
	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Transaction Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.errorList = widgets.NewList()
	d.errorList.Title = "Error Breakdown"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.sweepList = widgets.NewList()
	d.sweepList.Title = "Completed Sweeps"
	d.sweepList.Rows = []string{"Awaiting first sweep"}
	d.sweepList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.sweepList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.12,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.24,
			ui.NewCol(0.5, d.metricsPara),
			ui.NewCol(0.5, d.errorList),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(1.0, d.sweepList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// SweepStarted implements runner.Monitor.
func (d *Dashboard) SweepStarted(concurrency, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepTotal = total
	d.latencyHistory = d.latencyHistory[:0]
}

// SweepFinished implements runner.Monitor.
func (d *Dashboard) SweepFinished(runner.Result) {}

// SweepStarting implements experiment.Reporter.
func (d *Dashboard) SweepStarting(name string, concurrency, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepName = name
	d.status = fmt.Sprintf("Running %s (%d workers)", name, concurrency)
}

// SweepCompleted implements experiment.Reporter.
func (d *Dashboard) SweepCompleted(name string, res runner.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name != experiment.WarmupName {
		d.completed = append(d.completed, res)
	}
	d.status = "Completed " + name
	d.sweepList.Rows = formatSweepRows(d.completed)
}

// Settling implements experiment.Reporter.
func (d *Dashboard) Settling(wait time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = fmt.Sprintf("Settling for %s", wait)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop cancels the context once the experiment unwinds.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := d.collector.Snapshot()
	sweepElapsed := time.Since(stats.StartedAt)
	lat := stats.Latency

	if lat.Count > 0 {
		d.latencyHistory = append(d.latencyHistory, lat.MeanMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Transaction Latency | Mean: %.2fms | Min: %.2fms | Max: %.2fms",
			lat.MeanMs, lat.MinMs, lat.MaxMs,
		)
	}

	d.progressGauge.Percent = progressPercent(stats.TotalRequests, d.sweepTotal)
	d.progressGauge.Label = fmt.Sprintf("%d/%d", stats.TotalRequests, d.sweepTotal)

	throughput := runner.Throughput(stats.Successful, sweepElapsed)
	successRate := 0.0
	if stats.TotalRequests > 0 {
		successRate = float64(stats.Successful) / float64(stats.TotalRequests) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | %s",
		d.testConfig.TargetURL,
		d.formatTestParams(),
		time.Since(d.startTime).Round(time.Second),
		d.status,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Sweep:             %s\nCompleted:         %d\nSuccessful:        %d\nFailed:            %d\nPayment Declined:  %d\nThroughput:        %.2f req/s\nSuccess Rate:      %.1f%%",
		d.sweepName,
		stats.TotalRequests,
		stats.Successful,
		stats.Failed,
		stats.PaymentDeclined,
		throughput,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		lat.MinMs, lat.MeanMs, lat.P50Ms, lat.P90Ms, lat.P99Ms,
	)

	d.errorList.Rows = formatErrorRows(stats.Errors)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func progressPercent(completed int64, total int) int {
	if total <= 0 {
		return 0
	}
	return min(int(completed*100/int64(total)), 100)
}

func formatErrorRows(errs map[string]int64) []string {
	rows := metrics.FlattenErrors(errs)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "red"
		if row.Tag == "payment_declined" {
			color = "yellow"
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:%s) %d", row.Tag, color, row.Count))
	}
	return formatted
}

func formatSweepRows(results []runner.Result) []string {
	if len(results) == 0 {
		return []string{"Awaiting first sweep"}
	}
	best := 0
	for i := range results {
		if results[i].Throughput > results[best].Throughput {
			best = i
		}
	}
	rows := make([]string, 0, len(results))
	for i, r := range results {
		row := fmt.Sprintf("%4d workers | %8.2f req/s | %6.2f%% | %7.2fs | P99 %7.2fms",
			r.Concurrency, r.Throughput, r.SuccessRate, r.Duration.Seconds(), r.Stats.Latency.P99Ms)
		if i == best {
			row = "[" + row + " *](fg:green,mod:bold)"
		}
		rows = append(rows, row)
	}
	return rows
}

func (d *Dashboard) formatTestParams() string {
	var parts []string

	if len(d.testConfig.Levels) > 0 {
		levels := make([]string, len(d.testConfig.Levels))
		for i, l := range d.testConfig.Levels {
			levels[i] = fmt.Sprint(l)
		}
		parts = append(parts, "Levels: "+strings.Join(levels, ","))
	}
	if d.testConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", d.testConfig.Total))
	}
	if d.testConfig.Warmup > 0 {
		parts = append(parts, fmt.Sprintf("Warmup: %d", d.testConfig.Warmup))
	}
	if d.testConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.testConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}
	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}
	return strings.Join(parts, " | ")
}
