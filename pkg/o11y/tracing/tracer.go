package tracing

import (
	"context"
	"fmt"

	"github.com/jademcosta/logpig/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/jademcosta/logpig"

type ShutdownFunc func(context.Context) error

func NewNoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(instrumentationName)
}

// NewTracer returns a noop tracer when tracing is disabled. Without an endpoint on conf the
// exporter falls back to the standard OTEL_EXPORTER_OTLP_* env vars.
func NewTracer(ctx context.Context, conf config.TracingConfig) (trace.Tracer, ShutdownFunc, error) {
	if !conf.Enabled {
		return NewNoopTracer(), func(_ context.Context) error { return nil }, nil
	}

	exporterOpts := make([]otlptracehttp.Option, 0, 1)
	if conf.Endpoint != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpointURL(conf.Endpoint))
	}

	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(conf.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error building trace resource: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(conf.Ratio()))),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tracerProvider.Tracer(instrumentationName), tracerProvider.Shutdown, nil
}
