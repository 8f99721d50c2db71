package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checkoutload",
		Short:         "Sweep the create cart, add item, checkout workflow across concurrency levels",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.String("base-url", DefaultBaseURL, "Base URL of the shopping cart service (usually the load balancer)")
	flags.String("alb-url", "", "Deprecated alias of --base-url")
	_ = flags.MarkDeprecated("alb-url", "use --base-url instead")
	flags.String("card-number", DefaultCardNumber, "Credit card number sent with every checkout")

	// Experiment shape
	flags.IntP("total", "t", DefaultTotal, "Workflow instances per sweep")
	flags.IntSliceP("threads", "c", DefaultLevels, "Concurrency levels to sweep, in order")
	flags.Int("single", 0, "Run a single sweep at this concurrency (overrides --threads)")
	flags.Int("warmup", DefaultWarmup, "Warmup instances before the sweeps (0 disables warmup)")
	flags.Int("warmup-concurrency", DefaultWarmupConcurrency, "Concurrency of the warmup sweep")
	flags.Duration("warmup-settle", DefaultWarmupSettle, "Pause after the warmup sweep")
	flags.Duration("settle", DefaultSweepSettle, "Pause between consecutive sweeps")

	// Transport
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.IntP("rate", "r", 0, "Transactions started per second (0 means unlimited)")
	flags.Bool("isolate-connections", false, "Give every workflow instance its own connection pool")

	// Output
	flags.StringP("output", "o", string(OutputText), "Report format: text, json or yaml")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.String("results-file", "", "Append one JSON line per run to this history file")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed transaction")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Pass/fail assertion over sweep results (repeatable, e.g. 'success_rate:min >= 95')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (falls back to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of transactions to sample (0.0-1.0)")
	flags.Bool("tracing-propagate", false, "Inject W3C traceparent headers into requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("alb-url") {
		val, err := fs.GetString("alb-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}
	if fs.Changed("base-url") {
		val, err := fs.GetString("base-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}
	if fs.Changed("card-number") {
		val, err := fs.GetString("card-number")
		if err != nil {
			return err
		}
		cfg.CardNumber = val
	}
	if fs.Changed("total") {
		val, err := fs.GetInt("total")
		if err != nil {
			return err
		}
		cfg.Total = val
	}
	if fs.Changed("threads") {
		val, err := fs.GetIntSlice("threads")
		if err != nil {
			return err
		}
		cfg.Levels = val
	}
	if fs.Changed("single") {
		val, err := fs.GetInt("single")
		if err != nil {
			return err
		}
		cfg.Single = val
	}
	if fs.Changed("warmup") {
		val, err := fs.GetInt("warmup")
		if err != nil {
			return err
		}
		cfg.Warmup = val
	}
	if fs.Changed("warmup-concurrency") {
		val, err := fs.GetInt("warmup-concurrency")
		if err != nil {
			return err
		}
		cfg.WarmupConcurrency = val
	}
	if fs.Changed("warmup-settle") {
		val, err := fs.GetDuration("warmup-settle")
		if err != nil {
			return err
		}
		cfg.WarmupSettle = val
	}
	if fs.Changed("settle") {
		val, err := fs.GetDuration("settle")
		if err != nil {
			return err
		}
		cfg.SweepSettle = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("isolate-connections") {
		val, err := fs.GetBool("isolate-connections")
		if err != nil {
			return err
		}
		cfg.IsolateConnections = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("results-file") {
		val, err := fs.GetString("results-file")
		if err != nil {
			return err
		}
		cfg.ResultsFile = strings.TrimSpace(val)
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("metrics-addr") {
		val, err := fs.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	return nil
}
