package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Defaults applied by the loader before the config file and flags.
const (
	DefaultBaseURL           = "http://localhost:8080"
	DefaultTotal             = 200000
	DefaultWarmup            = 100
	DefaultWarmupConcurrency = 10
	DefaultWarmupSettle      = 5 * time.Second
	DefaultSweepSettle       = 30 * time.Second
	DefaultTimeout           = 30 * time.Second
	DefaultCardNumber        = "1234-5678-9012-3456"
	DefaultLogLevel          = "info"
)

// DefaultLevels is the concurrency sweep used when none is configured.
var DefaultLevels = []int{10, 20, 50, 100, 200}

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type Config struct {
	BaseURL            string        `mapstructure:"base_url"`
	Total              int           `mapstructure:"total"`
	Levels             []int         `mapstructure:"threads"`
	Single             int           `mapstructure:"single"`
	Warmup             int           `mapstructure:"warmup"`
	WarmupConcurrency  int           `mapstructure:"warmup_concurrency"`
	WarmupSettle       time.Duration `mapstructure:"warmup_settle"`
	SweepSettle        time.Duration `mapstructure:"settle"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Rate               int           `mapstructure:"rate"`
	CardNumber         string        `mapstructure:"card_number"`
	IsolateConnections bool          `mapstructure:"isolate_connections"`
	Output             OutputFormat  `mapstructure:"output"`
	HTMLOutput         string        `mapstructure:"html_output"`
	ResultsFile        string        `mapstructure:"results_file"`
	Dashboard          bool          `mapstructure:"dashboard"`
	LogErrors          bool          `mapstructure:"log_errors"`
	LogLevel           string        `mapstructure:"log_level"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
	Thresholds         []string      `mapstructure:"thresholds"`
	Tracing            TracingConfig `mapstructure:"tracing"`
	ConfigFile         string        `mapstructure:"-"`
}

// TracingConfig controls OpenTelemetry export for transactions.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported, either from an explicit
// endpoint or the standard OTLP environment variable.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) != ""
}

// ShouldPropagate reports whether traceparent headers are injected. It follows
// Enabled unless Propagate is set explicitly.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// ConcurrencyLevels returns the sweep levels in run order. Single, when set,
// replaces the configured list.
func (c Config) ConcurrencyLevels() []int {
	if c.Single > 0 {
		return []int{c.Single}
	}
	if len(c.Levels) == 0 {
		return append([]int(nil), DefaultLevels...)
	}
	return append([]int(nil), c.Levels...)
}

// MaxConcurrency is the largest number of simultaneous instances any sweep
// (warmup included) will run. It sizes the connection pool.
func (c Config) MaxConcurrency() int {
	highest := 0
	if c.Warmup > 0 {
		highest = c.WarmupConcurrency
	}
	for _, level := range c.ConcurrencyLevels() {
		highest = max(highest, level)
	}
	return highest
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.BaseURL) == "" {
		issues = append(issues, "base-url is required (use --help for usage information)")
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("base-url %q must be an absolute http(s) URL", c.BaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("base-url scheme %q is not supported", u.Scheme))
	}

	if c.Total < 0 {
		issues = append(issues, "total must be >= 0")
	}
	if c.Single < 0 {
		issues = append(issues, "single must be >= 0")
	}
	if c.Single == 0 {
		if len(c.Levels) == 0 {
			issues = append(issues, "threads must list at least one concurrency level")
		}
		for idx, level := range c.Levels {
			if level < 1 {
				issues = append(issues, fmt.Sprintf("threads[%d]: concurrency must be >= 1", idx))
			}
		}
	}
	if c.Warmup < 0 {
		issues = append(issues, "warmup must be >= 0")
	}
	if c.Warmup > 0 && c.WarmupConcurrency < 1 {
		issues = append(issues, "warmup-concurrency must be >= 1")
	}
	if c.WarmupSettle < 0 {
		issues = append(issues, "warmup-settle must be >= 0")
	}
	if c.SweepSettle < 0 {
		issues = append(issues, "settle must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if strings.TrimSpace(c.CardNumber) == "" {
		issues = append(issues, "card-number must not be empty")
	}

	switch c.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be 'text', 'json' or 'yaml', got %q", c.Output))
	}
	if c.Dashboard && c.Output != "" && c.Output != OutputText {
		issues = append(issues, "dashboard requires text output")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log-level %q is not supported", c.LogLevel))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if c.MaxConcurrency() > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High concurrency configured (%d workers). Ensure you have authorization to test the target system.", c.MaxConcurrency()))
	}
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High rate limit configured (%d transactions/s). Ensure you have authorization to test the target system.", c.Rate))
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0.0 and 1.0")
	}
	return issues
}
