package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitTracerInstallsGlobals(t *testing.T) {
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	tp, err := InitTracer(Config{ServiceName: "planner-test", Version: "test"})
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(trace.ContextWithSpanContext(context.Background(), sc), carrier)
	assert.Contains(t, carrier.Get("traceparent"), sc.TraceID().String())

	require.NoError(t, Shutdown(context.Background(), tp))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Config{}.sampler().Description(), "AlwaysOn")
	assert.Contains(t, Config{SampleRatio: 1.5}.sampler().Description(), "AlwaysOn")
	assert.Contains(t, Config{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}

func TestShutdownIgnoresForeignProviders(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), noop.NewTracerProvider()))
}
