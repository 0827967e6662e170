// Package tracing installs the OpenTelemetry tracer provider that exports
// spans to Jaeger.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/fridge-planner/pkg/logger"
)

// DefaultJaegerEndpoint is the collector endpoint of a local Jaeger.
const DefaultJaegerEndpoint = "http://localhost:14268/api/traces"

// Config describes the exported service.
type Config struct {
	ServiceName string
	Version     string
	Endpoint    string
	// SampleRatio is the fraction of new traces recorded. Values outside
	// (0, 1) record every trace.
	SampleRatio float64
}

func (c Config) sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

// InitTracer creates a batching Jaeger tracer provider and installs it,
// with W3C trace context and baggage propagation, as the global provider.
func InitTracer(cfg Config) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultJaegerEndpoint
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Logger.Info().
		Str("endpoint", cfg.Endpoint).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("Tracer initialized")
	return tp, nil
}

// Shutdown flushes and stops tp when it is an SDK provider.
func Shutdown(ctx context.Context, tp trace.TracerProvider) error {
	sdk, ok := tp.(*sdktrace.TracerProvider)
	if !ok {
		return nil
	}
	if err := sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
