package weave

import (
	"context"

	"github.com/google/uuid"

	"github.com/randalmurphal/weave/pkg/weave/attach"
	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/observability"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// Compose merges one parent event stream with any number of attachments
// into a single output stream.
//
// Subscription is lazy: nothing activates until the returned stream is
// itself subscribed. Each subscription runs one event loop that
// serializes all handler invocations: per incoming parent event, every
// attachment's OnParent runs and then the event is forwarded unchanged;
// per incoming related-data value, that attachment's OnRelated runs with
// its sink wired to the output. The order in which attachments see a
// parent event is unspecified; attachments are independent.
//
// Errors from the parent source propagate to the output and terminate
// the subscription. Errors from attachment sources are discarded (logged
// and counted) so one broken attachment cannot destabilize the output.
//
// The output completes when the parent source completes. Cancelling the
// subscriber's context cancels the parent subscription and every
// attachment subscription; no handler runs afterwards.
func Compose[P any](
	source stream.Stream[event.Event[P]],
	attachments []attach.Attachment[P],
	opts ...Option,
) stream.Stream[event.Event[P]] {
	if source == nil {
		panic("weave: Compose requires a source stream")
	}
	for _, a := range attachments {
		if a == nil {
			panic("weave: Compose requires non-nil attachments")
		}
	}

	cfg := defaultOptions()
	cfg.apply(opts)

	return func(ctx context.Context) <-chan stream.Item[event.Event[P]] {
		out := make(chan stream.Item[event.Event[P]], cfg.buffer)
		cctx, cancel := context.WithCancel(ctx)

		pipelineID := "pipe-" + uuid.New().String()[:8]
		logger := observability.EnrichLogger(cfg.logger, pipelineID)

		parent := source(cctx)

		// relatedValue tags a related-data item with the attachment that
		// produced it so per-source arrival order survives the merge.
		type relatedValue struct {
			idx  int
			item stream.Item[any]
		}
		mux := make(chan relatedValue)
		for i, a := range attachments {
			ch := a.Open(cctx)
			go func(idx int, ch <-chan stream.Item[any]) {
				for {
					select {
					case it, ok := <-ch:
						if !ok {
							return
						}
						select {
						case mux <- relatedValue{idx: idx, item: it}:
						case <-cctx.Done():
							return
						}
					case <-cctx.Done():
						return
					}
				}
			}(i, ch)
		}

		go func() {
			sctx, span := cfg.spans.StartPipelineSpan(cctx, pipelineID)
			observability.LogPipelineStart(logger, pipelineID, len(attachments))

			var forwarded, derived int64
			var runErr error
			defer func() {
				cancel()
				close(out)
				cfg.spans.EndSpanWithError(span, runErr)
				if runErr != nil {
					observability.LogPipelineError(logger, pipelineID, runErr)
				} else {
					observability.LogPipelineComplete(logger, pipelineID, forwarded, derived)
				}
			}()

			sink := attach.Sink[P](func(evt event.Event[P]) {
				if stream.Send(cctx, out, stream.Item[event.Event[P]]{Value: evt}) {
					derived++
					cfg.metrics.RecordDerivedEvents(sctx, 1)
				}
			})

			for {
				// Cancellation wins over any deliverable event.
				select {
				case <-cctx.Done():
					return
				default:
				}

				select {
				case <-cctx.Done():
					return

				case it, ok := <-parent:
					if !ok {
						return
					}
					if it.Err != nil {
						runErr = it.Err
						stream.Send(cctx, out, stream.Item[event.Event[P]]{Err: it.Err})
						return
					}
					for _, a := range attachments {
						a.OnParent(it.Value)
					}
					if !stream.Send(cctx, out, it) {
						return
					}
					forwarded++
					cfg.metrics.RecordParentEvent(sctx, it.Value.Kind.String())
					observability.LogParentEvent(logger, it.Value.Kind.String(), it.Value.Last)

				case r := <-mux:
					if r.item.Err != nil {
						cfg.metrics.RecordAttachmentError(sctx)
						observability.LogAttachmentError(logger, pipelineID, r.idx, r.item.Err)
						continue
					}
					attachments[r.idx].OnRelated(r.item.Value, sink)
				}
			}
		}()

		return out
	}
}
