package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a reader to
// collect metrics from it.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue totals all datapoints of a Sum metric, optionally filtered by a
// string attribute.
func sumValue(m *metricdata.Metrics, attrKey, attrValue string) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if attrKey == "" {
			total += dp.Value
			continue
		}
		for _, attr := range dp.Attributes.ToSlice() {
			if string(attr.Key) == attrKey && attr.Value.AsString() == attrValue {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
}

func TestRecordParentEvent(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordParentEvent(ctx, "fetch")
	m.RecordParentEvent(ctx, "fetch")
	m.RecordParentEvent(ctx, "delete")

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "weave.parent.events")
	require.NotNil(t, metric)

	assert.Equal(t, int64(2), sumValue(metric, "kind", "fetch"))
	assert.Equal(t, int64(1), sumValue(metric, "kind", "delete"))
}

func TestRecordDerivedEvents(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDerivedEvents(ctx, 3)
	m.RecordDerivedEvents(ctx, 2)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "weave.derived.events")
	require.NotNil(t, metric)
	assert.Equal(t, int64(5), sumValue(metric, "", ""))
}

func TestRecordAttachmentError(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAttachmentError(ctx)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "weave.attachment.errors")
	require.NotNil(t, metric)
	assert.Equal(t, int64(1), sumValue(metric, "", ""))
}

func TestRecordPending(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPending(ctx, PendingBuffered)
	m.RecordPending(ctx, PendingBuffered)
	m.RecordPending(ctx, PendingReplayed)
	m.RecordPending(ctx, PendingDropped)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "weave.pending.events")
	require.NotNil(t, metric)

	assert.Equal(t, int64(2), sumValue(metric, "op", PendingBuffered))
	assert.Equal(t, int64(1), sumValue(metric, "op", PendingReplayed))
	assert.Equal(t, int64(1), sumValue(metric, "op", PendingDropped))
}

func TestRecordVisibility(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordVisibility(ctx, VisibilityShown)
	m.RecordVisibility(ctx, VisibilityHidden)
	m.RecordVisibility(ctx, VisibilityShown)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "weave.visibility.transitions")
	require.NotNil(t, metric)

	assert.Equal(t, int64(2), sumValue(metric, "transition", VisibilityShown))
	assert.Equal(t, int64(1), sumValue(metric, "transition", VisibilityHidden))
}

func TestNewOtelMetrics_Creation(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotNil(t, m.parentEvents)
	assert.NotNil(t, m.derivedEvents)
	assert.NotNil(t, m.attachmentErrors)
	assert.NotNil(t, m.pendingEvents)
	assert.NotNil(t, m.visibility)
}
