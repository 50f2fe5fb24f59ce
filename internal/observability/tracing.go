package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "tix-engine"
	ServiceVersion = "0.1.0"
)

type Config struct {
	// Endpoint is host:port of an OTLP/HTTP collector. Empty disables export.
	Endpoint string
	Insecure bool
}

// SetupTracing installs the global tracer provider and propagator. Without
// an endpoint the global no-op provider stays in place and shutdown is a no-op.
func SetupTracing(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	const op = "observability.SetupTracing"

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("%s: resource: %w", op, err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, fmt.Errorf("%s: exporter: %w", op, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// EndSpan records err on the span, if any, and ends it. Errors in expected
// are business rejections: they are recorded as an outcome attribute but do
// not mark the span as failed.
func EndSpan(span trace.Span, err error, expected ...error) {
	defer span.End()

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	for _, e := range expected {
		if errors.Is(err, e) {
			span.SetAttributes(OutcomeKey.String(e.Error()))
			return
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
