package tracing

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// StartTransactionSpan starts the root span of one checkout workflow instance.
func StartTransactionSpan(ctx context.Context, tracer trace.Tracer, index int) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(instrumentationName)
	}
	ctx, span := tracer.Start(ctx, "checkout transaction",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(attribute.Int("checkoutload.instance", index))
	return ctx, span
}

// StartStepSpan starts a client span for a single step request.
func StartStepSpan(ctx context.Context, tracer trace.Tracer, step string) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(instrumentationName)
	}
	ctx, span := tracer.Start(ctx, "POST "+step,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodPost),
		attribute.String("checkoutload.step", step),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// EndTransactionSpan finishes a transaction span with its outcome tag.
func EndTransactionSpan(span trace.Span, success bool, tag string) {
	var err error
	if !success {
		err = errors.New(tag)
	}
	EndSpan(span, err, attribute.String("checkoutload.outcome", tag))
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
