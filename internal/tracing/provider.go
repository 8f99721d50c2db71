// Package tracing exports checkout transactions as OpenTelemetry spans.
package tracing

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ZhuoyueLian/checkoutload/internal/config"
)

const instrumentationName = "checkoutload"

// Run identifies the load run whose transactions are traced. Its fields
// become resource attributes on every exported span.
type Run struct {
	ID        string
	TargetURL string
	Levels    []int
	Total     int
	Version   string
	Export    config.TracingConfig
}

// RunFromConfig describes the run configured by cfg.
func RunFromConfig(cfg *config.Config, runID, version string) Run {
	return Run{
		ID:        runID,
		TargetURL: cfg.BaseURL,
		Levels:    cfg.ConcurrencyLevels(),
		Total:     cfg.Total,
		Version:   version,
		Export:    cfg.Tracing,
	}
}

// Provider owns the tracer used by the transaction executor.
type Provider struct {
	tp        *sdktrace.TracerProvider
	tracer    trace.Tracer
	propagate bool
	attrs     []attribute.KeyValue
}

// Init starts span export for run. Without an OTLP endpoint, from the run or
// OTEL_EXPORTER_OTLP_ENDPOINT, it returns a provider whose tracer is a no-op.
func Init(ctx context.Context, run Run) (*Provider, error) {
	exp := run.Export
	if exp.SampleRate < 0 || exp.SampleRate > 1 {
		return nil, fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", exp.SampleRate)
	}

	attrs := run.attributes()
	endpoint := strings.TrimSpace(exp.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	if endpoint == "" {
		return &Provider{propagate: exp.ShouldPropagate(), attrs: attrs}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}
	exporter, err := newExporter(ctx, exp, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(exp.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:        tp,
		tracer:    tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(run.Version)),
		propagate: exp.ShouldPropagate(),
		attrs:     attrs,
	}, nil
}

// attributes names the load generator and the target it drives.
func (r Run) attributes() []attribute.KeyValue {
	name := strings.TrimSpace(r.Export.ServiceName)
	if name == "" {
		name = os.Getenv("OTEL_SERVICE_NAME")
	}
	if name == "" {
		name = instrumentationName
	}
	version := r.Version
	if version == "" {
		version = "dev"
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
		attribute.Int("checkoutload.total", r.Total),
	}
	if r.ID != "" {
		attrs = append(attrs,
			semconv.ServiceInstanceID(r.ID),
			attribute.String("checkoutload.run_id", r.ID),
		)
	}
	if len(r.Levels) > 0 {
		attrs = append(attrs, attribute.IntSlice("checkoutload.levels", r.Levels))
	}
	if host, port, ok := targetAddress(r.TargetURL); ok {
		attrs = append(attrs, semconv.ServerAddress(host))
		if port > 0 {
			attrs = append(attrs, semconv.ServerPort(port))
		}
	}
	return attrs
}

// targetAddress splits the base URL into host and port, filling the scheme
// default when the port is omitted.
func targetAddress(raw string) (string, int, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", 0, false
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		host = u.Hostname()
		switch u.Scheme {
		case "https":
			return host, 443, true
		case "http":
			return host, 80, true
		}
		return host, 0, true
	}
	port, _ := strconv.Atoi(portStr)
	return host, port, true
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate == 0:
		return sdktrace.NeverSample()
	case rate < 1:
		return sdktrace.TraceIDRatioBased(rate)
	default:
		return sdktrace.AlwaysSample()
	}
}

// Tracer returns the transaction tracer, or a no-op tracer when nothing is
// exported.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// ShouldPropagate reports whether steps carry a traceparent header.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Attributes returns the resource attributes describing the run.
func (p *Provider) Attributes() []attribute.KeyValue {
	if p == nil {
		return nil
	}
	return append([]attribute.KeyValue(nil), p.attrs...)
}

// Shutdown flushes buffered spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func newExporter(ctx context.Context, exp config.TracingConfig, endpoint string) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(exp.Protocol) {
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if exp.Insecure {
			opts = append(opts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if exp.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", exp.Protocol)
	}
}
