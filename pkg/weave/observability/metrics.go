// Package observability provides structured logging, metrics, and
// tracing for weave pipelines.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Pending buffer operations recorded by RecordPending.
const (
	PendingBuffered = "buffered"
	PendingReplayed = "replayed"
	PendingDropped  = "dropped"
)

// Visibility transitions recorded by RecordVisibility.
const (
	VisibilityShown  = "shown"
	VisibilityHidden = "hidden"
)

// MetricsRecorder records weave pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordParentEvent records one parent event forwarded by the
	// composition operator, tagged by event kind.
	RecordParentEvent(ctx context.Context, kind string)

	// RecordDerivedEvents records derived events emitted by attachments.
	RecordDerivedEvents(ctx context.Context, count int64)

	// RecordAttachmentError records a discarded attachment source error.
	RecordAttachmentError(ctx context.Context)

	// RecordPending records pending-buffer activity (buffered, replayed,
	// or dropped).
	RecordPending(ctx context.Context, op string)

	// RecordVisibility records a visibility transition (shown or hidden).
	RecordVisibility(ctx context.Context, transition string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	parentEvents     metric.Int64Counter
	derivedEvents    metric.Int64Counter
	attachmentErrors metric.Int64Counter
	pendingEvents    metric.Int64Counter
	visibility       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("weave")

	parentEvents, err := meter.Int64Counter("weave.parent.events",
		metric.WithDescription("Parent events forwarded by the composition operator"),
	)
	if err != nil {
		return nil, err
	}

	derivedEvents, err := meter.Int64Counter("weave.derived.events",
		metric.WithDescription("Derived events emitted by attachments"),
	)
	if err != nil {
		return nil, err
	}

	attachmentErrors, err := meter.Int64Counter("weave.attachment.errors",
		metric.WithDescription("Attachment source errors discarded by the composition operator"),
	)
	if err != nil {
		return nil, err
	}

	pendingEvents, err := meter.Int64Counter("weave.pending.events",
		metric.WithDescription("Pending-buffer operations (buffered, replayed, dropped)"),
	)
	if err != nil {
		return nil, err
	}

	visibility, err := meter.Int64Counter("weave.visibility.transitions",
		metric.WithDescription("Visibility filter transitions (shown, hidden)"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		parentEvents:     parentEvents,
		derivedEvents:    derivedEvents,
		attachmentErrors: attachmentErrors,
		pendingEvents:    pendingEvents,
		visibility:       visibility,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordParentEvent records one forwarded parent event.
func (m *otelMetrics) RecordParentEvent(ctx context.Context, kind string) {
	m.parentEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordDerivedEvents records derived events emitted by attachments.
func (m *otelMetrics) RecordDerivedEvents(ctx context.Context, count int64) {
	m.derivedEvents.Add(ctx, count)
}

// RecordAttachmentError records a discarded attachment source error.
func (m *otelMetrics) RecordAttachmentError(ctx context.Context) {
	m.attachmentErrors.Add(ctx, 1)
}

// RecordPending records pending-buffer activity.
func (m *otelMetrics) RecordPending(ctx context.Context, op string) {
	m.pendingEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
	))
}

// RecordVisibility records a visibility transition.
func (m *otelMetrics) RecordVisibility(ctx context.Context, transition string) {
	m.visibility.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", transition),
	))
}
