package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/delegates/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "delegates",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, otel.GetTracerProvider(), tp.Provider())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, tp.Shutdown(cancelled))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping exporter setup in short mode")
	}
	ctx := context.Background()
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	// The gRPC exporter connects lazily, so no collector is needed until
	// spans are exported.
	tp, err := NewTracerProvider(ctx, Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "delegates",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, tp.IsEnabled())
	assert.Equal(t, tp.Provider(), otel.GetTracerProvider())
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{1.5, sdktrace.AlwaysSample().Description()},
		{0.0, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampler(tt.ratio).Description())
	}
}

func TestStart_Disabled(t *testing.T) {
	ctx := context.Background()
	providers, err := Start(ctx, Settings{
		Traces:  Config{ServiceName: "delegates"},
		Logs:    LogsConfig{ServiceName: "delegates"},
		Metrics: MetricsConfig{ServiceName: "delegates"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, providers.Tracer.IsEnabled())
	assert.False(t, providers.Logs.IsEnabled())
	assert.False(t, providers.Meter.IsEnabled())

	base := zaptest.NewLogger(t)
	assert.Same(t, base, providers.Logger(base, zapcore.WarnLevel))
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestFromConfig(t *testing.T) {
	settings := FromConfig(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.5,
		Insecure:          true,
		LogsEnabled:       false,
		MetricsEnabled:    true,
		MetricsInterval:   15 * time.Second,
	}, "contacts")

	assert.Equal(t, Config{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.5,
		ServiceName:       "contacts",
		Insecure:          true,
	}, settings.Traces)
	assert.Equal(t, LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "otel:4317",
		ServiceName:       "contacts",
		Insecure:          true,
	}, settings.Logs)
	assert.Equal(t, MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		ExportInterval:    15 * time.Second,
		ServiceName:       "contacts",
		Insecure:          true,
	}, settings.Metrics)
}
