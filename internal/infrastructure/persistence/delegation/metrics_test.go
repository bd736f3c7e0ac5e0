package delegation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Distinct]metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	points := map[attribute.Distinct]metricdata.DataPoint[int64]{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				points[dp.Attributes.Equivalent()] = dp
			}
		}
	}
	return points
}

func countFor(points map[attribute.Distinct]metricdata.DataPoint[int64], attrs ...attribute.KeyValue) int64 {
	set := attribute.NewSet(attrs...)
	return points[set.Equivalent()].Value
}

func TestDelegator_SaveMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	db := setupDB(t)
	d := newPeople(t, db, WithMeterProvider(mp))

	p := &person{Firstname: "Bob"}
	require.NoError(t, d.Write(ctx, p, "lastname", "Marley"))
	ok, err := d.Save(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Write(ctx, p, "email", "not-an-email"))
	ok, err = d.Save(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	p.Firstname = ""
	ok, err = d.Save(ctx, p)
	require.NoError(t, err)
	require.False(t, ok)

	saves := collectSums(t, reader, "delegation_saves_total")
	assert.Equal(t, int64(2), countFor(saves,
		attribute.String("model", "person"), attribute.String("outcome", "saved")))
	assert.Equal(t, int64(1), countFor(saves,
		attribute.String("model", "person"), attribute.String("outcome", "invalid")))

	assoc := collectSums(t, reader, "delegation_association_saves_total")
	assert.Equal(t, int64(1), countFor(assoc,
		attribute.String("model", "person"), attribute.String("association", "Contact"), attribute.Bool("valid", true)))
	assert.Equal(t, int64(1), countFor(assoc,
		attribute.String("model", "person"), attribute.String("association", "Contact"), attribute.Bool("valid", false)))
}
