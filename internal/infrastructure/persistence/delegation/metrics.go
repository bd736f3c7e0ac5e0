package delegation

import (
	"context"
	"time"

	"github.com/delegates/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/delegates/backend/delegation"

// Save outcomes reported on delegation_saves_total.
const (
	outcomeSaved   = "saved"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

type saveMetrics struct {
	saves        *telemetry.Counter
	associations *telemetry.Counter
	duration     *telemetry.Histogram
}

func newSaveMetrics(mp metric.MeterProvider) (*saveMetrics, error) {
	meter := mp.Meter(meterName)

	saves, err := telemetry.NewCounter(meter,
		"delegation_saves_total",
		"Saves of delegating records by outcome",
		"{save}",
	)
	if err != nil {
		return nil, err
	}
	associations, err := telemetry.NewCounter(meter,
		"delegation_association_saves_total",
		"Associated records written by cascading saves",
		"{record}",
	)
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "delegation_save_duration_seconds",
		Description: "Duration of delegating saves including associations",
		Unit:        "s",
		Boundaries:  telemetry.DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &saveMetrics{saves: saves, associations: associations, duration: duration}, nil
}

func (m *saveMetrics) recordSave(ctx context.Context, model string, start time.Time, ok bool, err error) {
	outcome := outcomeSaved
	switch {
	case err != nil:
		outcome = outcomeError
	case !ok:
		outcome = outcomeInvalid
	}
	modelAttr := attribute.String("model", model)
	m.saves.Inc(ctx, modelAttr, attribute.String("outcome", outcome))
	m.duration.RecordDuration(ctx, time.Since(start), modelAttr)
}

func (m *saveMetrics) recordAssociation(ctx context.Context, model, association string, valid bool) {
	m.associations.Inc(ctx,
		attribute.String("model", model),
		attribute.String("association", association),
		attribute.Bool("valid", valid),
	)
}
