// Package tracing wires OpenTelemetry spans around upstream source calls
// and the worker's HTTP surface.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "vuln-feed"

// GetTracer returns the tracer for creating spans. It resolves through the
// global provider, so it honours a provider installed after package init.
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Init installs a global tracer provider sampling the given ratio of root
// spans and returns its shutdown function.
func Init(sampleRatio float64) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown
}

// StartSourceSpan opens a span for one adapter call.
func StartSourceSpan(ctx context.Context, source, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("vuln.source", source),
		attribute.String("vuln.op", op),
	)
	return GetTracer().Start(ctx, "source."+op, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
