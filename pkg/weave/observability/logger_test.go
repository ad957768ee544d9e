package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds pipeline_id to records", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		enriched := EnrichLogger(logger, "pipe-a1b2c3d4")
		require.NotNil(t, enriched)
		enriched.Info("hello")

		rec := h.getLastRecord()
		require.NotNil(t, rec)
		assert.Equal(t, "pipe-a1b2c3d4", rec["pipeline_id"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "pipe-1"))
	})
}

func TestLogPipelineStart(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogPipelineStart(logger, "pipe-1", 2)

	rec := h.getLastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, "pipeline subscribed", rec["msg"])
	assert.Equal(t, "pipe-1", rec["pipeline_id"])
	assert.Equal(t, float64(2), rec["attachments"])

	assert.NotPanics(t, func() { LogPipelineStart(nil, "pipe-1", 2) })
}

func TestLogPipelineComplete(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogPipelineComplete(logger, "pipe-1", 5, 12)

	rec := h.getLastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, "pipeline completed", rec["msg"])
	assert.Equal(t, float64(5), rec["parent_events"])
	assert.Equal(t, float64(12), rec["derived_events"])

	assert.NotPanics(t, func() { LogPipelineComplete(nil, "pipe-1", 0, 0) })
}

func TestLogPipelineError(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogPipelineError(logger, "pipe-1", errors.New("source closed"))

	rec := h.getLastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, "pipeline failed", rec["msg"])
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "source closed", rec["error"])

	assert.NotPanics(t, func() { LogPipelineError(nil, "pipe-1", errors.New("x")) })
}

func TestLogParentEvent(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogParentEvent(logger, "fetch", true)

	rec := h.getLastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, "parent event", rec["msg"])
	assert.Equal(t, "fetch", rec["kind"])
	assert.Equal(t, true, rec["last"])

	assert.NotPanics(t, func() { LogParentEvent(nil, "fetch", false) })
}

func TestLogAttachmentError(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogAttachmentError(logger, "pipe-1", 3, errors.New("child source reset"))

	rec := h.getLastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, "attachment error discarded", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "pipe-1", rec["pipeline_id"])
	assert.Equal(t, float64(3), rec["attachment"])
	assert.Equal(t, "child source reset", rec["error"])

	assert.NotPanics(t, func() { LogAttachmentError(nil, "pipe-1", 0, errors.New("x")) })
}
