package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
	"github.com/ZhuoyueLian/checkoutload/internal/config"
	"github.com/ZhuoyueLian/checkoutload/internal/dashboard"
	"github.com/ZhuoyueLian/checkoutload/internal/experiment"
	"github.com/ZhuoyueLian/checkoutload/internal/httpclient"
	"github.com/ZhuoyueLian/checkoutload/internal/metrics"
	"github.com/ZhuoyueLian/checkoutload/internal/output"
	"github.com/ZhuoyueLian/checkoutload/internal/runner"
	"github.com/ZhuoyueLian/checkoutload/internal/threshold"
	"github.com/ZhuoyueLian/checkoutload/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var errInterrupted = errors.New("test interrupted by user")

// buildVersion reports the module version stamped by the go tool.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.Dashboard)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runID := experiment.NewRunID(time.Now())
	provider, err := tracing.Init(ctx, tracing.RunFromConfig(cfg, runID, buildVersion()))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	transport := httpclient.NewTransport(cfg.MaxConcurrency())
	defer transport.CloseIdleConnections()

	exec, err := checkout.New(checkout.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		CardNumber: cfg.CardNumber,
		Sessions:   httpclient.NewSessionFactory(transport, cfg.IsolateConnections),
		Tracer:     provider.Tracer(),
		Propagate:  provider.ShouldPropagate(),
	})
	if err != nil {
		return err
	}

	var executor runner.Executor = exec
	if cfg.LogErrors {
		executor = runner.WithLogging(executor, &zapFailureLogger{log: logger})
	}

	collector := metrics.NewCollector()
	levels := cfg.ConcurrencyLevels()

	var monitors []runner.Monitor
	var dash *dashboard.Dashboard
	orchOpts := []experiment.Option{experiment.WithLogger(logger), experiment.WithRunID(runID)}

	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheusCollector(collector)
		srv, err := startMetricsServer(cfg.MetricsAddr, prom.Handler(), logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		orchOpts = append(orchOpts, experiment.WithReporter(&sweepPublisher{prom: prom}))
	}

	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.TestConfig{
			TargetURL:  cfg.BaseURL,
			Levels:     levels,
			Total:      cfg.Total,
			Warmup:     cfg.Warmup,
			Rate:       cfg.Rate,
			Timeout:    cfg.Timeout,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		monitors = append(monitors, dash)
		orchOpts = append(orchOpts, experiment.WithReporter(dash))
		dash.Start()
	} else if cfg.Output == config.OutputText {
		output.PrintBanner(stdout, cfg.BaseURL, cfg.Total, levels)
		monitors = append(monitors, output.NewProgressReporter(collector, progressInterval, stdout))
		orchOpts = append(orchOpts, experiment.WithReporter(output.NewConsoleReporter(stdout)))
	}

	r := runner.New(runner.Options{
		Executor:      executor,
		Collector:     collector,
		RatePerSecond: cfg.Rate,
		Monitors:      monitors,
	})

	summary, runErr := experiment.New(r, orchOpts...).Run(ctx, experiment.Plan{
		Levels:            levels,
		Total:             cfg.Total,
		Warmup:            cfg.Warmup,
		WarmupConcurrency: cfg.WarmupConcurrency,
		WarmupSettle:      cfg.WarmupSettle,
		SweepSettle:       cfg.SweepSettle,
	})
	if dash != nil {
		dash.Stop()
	}

	interrupted := runErr != nil && ctx.Err() != nil && errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		logger.Error("experiment aborted", zap.Error(runErr))
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(summary)
	if err := writeReports(stdout, cfg, summary, results); err != nil {
		return err
	}

	switch {
	case interrupted:
		return errInterrupted
	case runErr != nil:
		return runErr
	case !threshold.AllPassed(results):
		failed := 0
		for _, r := range results {
			if !r.Pass {
				failed++
			}
		}
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}

func writeReports(stdout io.Writer, cfg *config.Config, summary experiment.Summary, results []threshold.Result) error {
	report := output.NewReport(summary, results)

	switch cfg.Output {
	case config.OutputJSON:
		if err := output.PrintJSONReport(stdout, report); err != nil {
			return err
		}
	case config.OutputYAML:
		if err := output.PrintYAMLReport(stdout, report); err != nil {
			return err
		}
	default:
		if len(summary.Results) > 0 {
			output.PrintSummary(stdout, summary)
		}
		output.PrintThresholdResults(stdout, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, summary, results, output.ReportMetadata{
			TargetURL: cfg.BaseURL,
			Rate:      cfg.Rate,
		}); err != nil {
			return err
		}
		if cfg.Output == config.OutputText {
			fmt.Fprintf(stdout, "\nHTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if cfg.ResultsFile != "" {
		entry := output.HistoryEntry{Report: report, BaseURL: cfg.BaseURL}
		if err := output.AppendHistory(cfg.ResultsFile, entry); err != nil {
			return err
		}
	}
	return nil
}

func writeHTMLReport(path string, summary experiment.Summary, results []threshold.Result, meta output.ReportMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, summary, results, meta); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
