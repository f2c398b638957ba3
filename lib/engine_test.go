package userdesk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewEngineReleasesTelemetryOnStartupError(t *testing.T) {
	if testing.Short() {
		t.Skip("flushes exporters against an unreachable collector")
	}
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})

	env := requiredEnv()
	env["OTEL_ENDPOINT"] = "127.0.0.1:1"
	env["POSTGRES_HOST"] = "127.0.0.1"
	env["POSTGRES_PORT"] = "1"
	c, err := loadConfig("", envLookup(env))
	require.NoError(t, err)

	e, err := NewEngine(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, e)

	_, span := otel.Tracer("engine-test").Start(context.Background(), "after-failure")
	defer span.End()
	assert.False(t, span.IsRecording(), "tracer provider must be shut down")
}
