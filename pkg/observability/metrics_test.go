package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/arborist/pkg/observability"
)

func setupMetrics(t *testing.T) (*observability.RewriteMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewRewriteMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return metrics, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := make(map[string]metricdata.Metrics)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			byName[m.Name] = m
		}
	}

	return byName
}

func attrs(kvs ...attribute.KeyValue) attribute.Distinct {
	return attribute.NewSet(kvs...).Equivalent()
}

func sumOf(t *testing.T, m metricdata.Metrics) map[attribute.Distinct]int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	out := make(map[attribute.Distinct]int64)
	for _, dp := range sum.DataPoints {
		out[dp.Attributes.Equivalent()] = dp.Value
	}

	return out
}

func TestRewriteMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	metrics, reader := setupMetrics(t)

	metrics.RecordRun(context.Background(), observability.RunRecord{
		Language: "python",
		Duration: 2 * time.Millisecond,
		Fired:    map[string]int{"unwrap": 2, "rename": 1},
		Created:  7,
	})

	byName := collect(t, reader)

	runs := sumOf(t, byName["arborist.runs.total"])
	assert.Equal(t, int64(1), runs[attrs(
		attribute.String("language", "python"),
		attribute.String("status", "ok"),
	)])

	fired := sumOf(t, byName["arborist.rules.fired.total"])
	assert.Equal(t, int64(2), fired[attrs(
		attribute.String("language", "python"),
		attribute.String("rule", "unwrap"),
	)])
	assert.Len(t, fired, 2)

	created := sumOf(t, byName["arborist.nodes.created.total"])
	assert.Equal(t, int64(7), created[attrs(attribute.String("language", "python"))])

	assert.NotContains(t, byName, "arborist.errors.total")

	hist, ok := byName["arborist.run.duration.seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestRewriteMetrics_RecordFailure(t *testing.T) {
	t.Parallel()

	metrics, reader := setupMetrics(t)

	metrics.RecordRun(context.Background(), observability.RunRecord{
		Language: "go",
		Err:      errors.New("boom"),
	})

	byName := collect(t, reader)

	errs := sumOf(t, byName["arborist.errors.total"])
	assert.Equal(t, int64(1), errs[attrs(attribute.String("language", "go"))])

	runs := sumOf(t, byName["arborist.runs.total"])
	assert.Equal(t, int64(1), runs[attrs(
		attribute.String("language", "go"),
		attribute.String("status", "error"),
	)])
}

func TestRewriteMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var metrics *observability.RewriteMetrics

	assert.NotPanics(t, func() {
		metrics.RecordRun(context.Background(), observability.RunRecord{Language: "python"})
	})
}
