package observability

import "log/slog"

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger with a pipeline_id field.
//
// Example:
//
//	enriched := EnrichLogger(logger, "pipe-a1b2c3d4")
//	enriched.Debug("parent event") // includes pipeline_id
func EnrichLogger(logger *slog.Logger, pipelineID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("pipeline_id", pipelineID),
	)
}

// LogPipelineStart logs the activation of a pipeline subscription.
func LogPipelineStart(logger *slog.Logger, pipelineID string, attachments int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline subscribed",
		slog.String("pipeline_id", pipelineID),
		slog.Int("attachments", attachments),
	)
}

// LogPipelineComplete logs normal pipeline completion.
func LogPipelineComplete(logger *slog.Logger, pipelineID string, forwarded, derived int64) {
	if logger == nil {
		return
	}
	logger.Info("pipeline completed",
		slog.String("pipeline_id", pipelineID),
		slog.Int64("parent_events", forwarded),
		slog.Int64("derived_events", derived),
	)
}

// LogPipelineError logs pipeline termination caused by a parent source
// error.
func LogPipelineError(logger *slog.Logger, pipelineID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("pipeline failed",
		slog.String("pipeline_id", pipelineID),
		slog.String("error", err.Error()),
	)
}

// LogParentEvent logs one forwarded parent event.
func LogParentEvent(logger *slog.Logger, kind string, last bool) {
	if logger == nil {
		return
	}
	logger.Debug("parent event",
		slog.String("kind", kind),
		slog.Bool("last", last),
	)
}

// LogAttachmentError logs an attachment source error being discarded.
// One broken attachment must never destabilize the composed output, so
// this is the only trace the error leaves.
func LogAttachmentError(logger *slog.Logger, pipelineID string, index int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("attachment error discarded",
		slog.String("pipeline_id", pipelineID),
		slog.Int("attachment", index),
		slog.String("error", err.Error()),
	)
}
