package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/submean/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.EstimatorMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	em, err := observability.NewEstimatorMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return em, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestEstimatorMetrics_RecordCall(t *testing.T) {
	t.Parallel()

	em, reader := setupTestMeter(t)
	ctx := context.Background()

	em.RecordCall(ctx, observability.CallStats{
		Op:           "mean",
		Status:       observability.StatusOK,
		Duration:     2 * time.Millisecond,
		Groups:       6,
		Elements:     600,
		Iterations:   42,
		NonConverged: 1,
	})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "submean.calls.total")))
	assert.Equal(t, int64(6), sumOf(t, findMetric(rm, "submean.groups.total")))
	assert.Equal(t, int64(600), sumOf(t, findMetric(rm, "submean.elements.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "submean.groups.nonconverged.total")))

	duration := findMetric(rm, "submean.call.duration.seconds")
	require.NotNil(t, duration)

	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	op, found := hist.DataPoints[0].Attributes.Value(attribute.Key("op"))
	require.True(t, found)
	assert.Equal(t, "mean", op.AsString())
}

func TestEstimatorMetrics_ErrorSkipsWorkCounters(t *testing.T) {
	t.Parallel()

	em, reader := setupTestMeter(t)

	em.RecordCall(context.Background(), observability.CallStats{
		Op:     "mean_flattened",
		Status: observability.StatusError,
		Groups: 3,
	})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "submean.calls.total")))
	assert.Nil(t, findMetric(rm, "submean.groups.total"))
}

func TestEstimatorMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var em *observability.EstimatorMetrics

	assert.NotPanics(t, func() {
		em.RecordCall(context.Background(), observability.CallStats{Op: "mean"})
	})
}
