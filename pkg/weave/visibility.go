package weave

import (
	"context"

	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/observability"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// Visible rewrites a stream's Change events into synthetic Fetch and
// Delete events at visibility boundaries.
//
// pred decides whether an item is currently visible; key identifies
// items across successive versions, since a newer version of "the same"
// item is a distinct value. A nil pred makes Visible the identity
// transform and src is returned unmodified.
//
// Per event e:
//   - e visible and previously invisible: emitted as Fetch when e is a
//     Change (first-appearance semantics), otherwise unchanged.
//   - e visible and previously visible: forwarded unchanged.
//   - e invisible (or a Delete) for a previously visible item: a
//     synthetic Delete is emitted, whatever e's own kind was.
//   - e invisible and never visible: nothing is emitted.
//
// In-band errors pass through unmodified.
func Visible[P any, K comparable](
	src stream.Stream[event.Event[P]],
	pred func(P) bool,
	key func(P) K,
	opts ...Option,
) stream.Stream[event.Event[P]] {
	if pred == nil {
		return src
	}
	if src == nil {
		panic("weave: Visible requires a source stream")
	}
	if key == nil {
		panic("weave: Visible requires a key function")
	}

	cfg := defaultOptions()
	cfg.apply(opts)

	return func(ctx context.Context) <-chan stream.Item[event.Event[P]] {
		out := make(chan stream.Item[event.Event[P]], cfg.buffer)
		in := src(ctx)

		go func() {
			defer close(out)
			visible := make(map[K]struct{})

			for it := range in {
				if it.Err != nil {
					if !stream.Send(ctx, out, it) {
						return
					}
					continue
				}

				evt := it.Value
				k := key(evt.Item)
				_, was := visible[k]
				is := evt.Kind != event.KindDelete && pred(evt.Item)

				switch {
				case is:
					visible[k] = struct{}{}
					forward := evt
					if !was {
						cfg.metrics.RecordVisibility(ctx, observability.VisibilityShown)
						if evt.Kind == event.KindChange {
							forward = event.Fetch(evt.Item, evt.Last)
						}
					}
					if !stream.Send(ctx, out, stream.Item[event.Event[P]]{Value: forward}) {
						return
					}

				case was:
					delete(visible, k)
					cfg.metrics.RecordVisibility(ctx, observability.VisibilityHidden)
					if !stream.Send(ctx, out, stream.Item[event.Event[P]]{Value: event.Delete(evt.Item, evt.Last)}) {
						return
					}

				default:
					// Invisible before and after: stays silent.
				}
			}
		}()

		return out
	}
}
