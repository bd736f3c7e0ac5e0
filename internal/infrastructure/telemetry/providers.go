package telemetry

import (
	"context"
	"errors"

	"github.com/delegates/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Settings groups the per-signal provider configs.
type Settings struct {
	Traces  Config
	Logs    LogsConfig
	Metrics MetricsConfig
}

// Providers bundles the trace, log and metric providers of a process.
type Providers struct {
	Tracer *TracerProvider
	Logs   *LoggerProvider
	Meter  *MeterProvider
}

// Start creates all providers. Each may be disabled by its config.
func Start(ctx context.Context, settings Settings, logger *zap.Logger) (*Providers, error) {
	tp, err := NewTracerProvider(ctx, settings.Traces, logger)
	if err != nil {
		return nil, err
	}
	lp, err := NewLoggerProvider(ctx, settings.Logs, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	mp, err := NewMeterProvider(ctx, settings.Metrics, logger)
	if err != nil {
		_ = errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx))
		return nil, err
	}
	return &Providers{Tracer: tp, Logs: lp, Meter: mp}, nil
}

// Logger returns logger bridged to the log provider at level and above.
func (p *Providers) Logger(logger *zap.Logger, level zapcore.Level) *zap.Logger {
	return p.Logs.Bridge(logger, level)
}

// Shutdown flushes and stops all providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.Tracer.Shutdown(ctx), p.Logs.Shutdown(ctx), p.Meter.Shutdown(ctx))
}

// FromConfig splits the application telemetry settings into per-signal
// provider configs for service.
func FromConfig(cfg config.TelemetryConfig, service string) Settings {
	return Settings{
		Traces: Config{
			Enabled:           cfg.Enabled,
			CollectorEndpoint: cfg.CollectorEndpoint,
			SamplingRatio:     cfg.SamplingRatio,
			ServiceName:       service,
			Insecure:          cfg.Insecure,
		},
		Logs: LogsConfig{
			Enabled:           cfg.LogsEnabled,
			CollectorEndpoint: cfg.CollectorEndpoint,
			ServiceName:       service,
			Insecure:          cfg.Insecure,
		},
		Metrics: MetricsConfig{
			Enabled:           cfg.MetricsEnabled,
			CollectorEndpoint: cfg.CollectorEndpoint,
			ExportInterval:    cfg.MetricsInterval,
			ServiceName:       service,
			Insecure:          cfg.Insecure,
		},
	}
}
