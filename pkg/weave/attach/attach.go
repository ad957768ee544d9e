// Package attach defines how related-data streams are merged into a
// parent item stream.
//
// An Attachment pairs a source of related data (child collections or
// looked-up property values) with two reaction handlers. The composition
// operator in package weave drives both handlers from a single event
// loop: OnParent for every event on the parent stream, OnRelated for
// every value the attachment's own source produces.
//
// Two concrete strategies are provided:
//   - List: a growable child collection keyed by parent identifier,
//     with many-to-many fan-out and out-of-order arrival buffering.
//   - Lookup: a single cached value shared by every parent carrying the
//     same lookup code.
package attach

import (
	"context"

	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// Sink receives parent events an attachment derives from related data.
type Sink[P any] func(event.Event[P])

// Attachment merges one related-data stream into a parent stream of P.
//
// The related-data element type varies per attachment, so Open delivers
// values type-erased; OnRelated receives exactly the values Open
// produced.
//
// Handlers are invoked one at a time by the composition operator.
// OnParent must not emit: the parent event is already forwarded by the
// operator, so emitting here would duplicate it. Only OnRelated may push
// derived events through its sink.
type Attachment[P any] interface {
	// Open subscribes the related-data source. Called once per
	// composition subscription.
	Open(ctx context.Context) <-chan stream.Item[any]

	// OnParent reacts to one event from the parent stream.
	OnParent(evt event.Event[P])

	// OnRelated reacts to one value from the attachment's own source and
	// may emit derived parent events through emit.
	OnRelated(value any, emit Sink[P])
}

// erase adapts a typed stream into the type-erased channel Open returns.
func erase[T any](ctx context.Context, s stream.Stream[T]) <-chan stream.Item[any] {
	in := s(ctx)
	out := make(chan stream.Item[any])
	go func() {
		defer close(out)
		for {
			select {
			case it, ok := <-in:
				if !ok {
					return
				}
				if !stream.Send(ctx, out, stream.Item[any]{Value: it.Value, Err: it.Err}) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
