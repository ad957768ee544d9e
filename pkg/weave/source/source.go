// Package source converts raw per-item operation records into the weave
// event vocabulary.
//
// The conversion is a 1:1 mapping with one twist: the origin's "no
// records available" condition is remapped into the distinct ErrNoData
// signal so consumers can tell "no data" from a generic failure.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// ErrNoRecords is the origin-side condition raised when a query matched
// nothing. It never reaches weave consumers directly; Convert remaps it
// to ErrNoData.
var ErrNoRecords = errors.New("source: no records available")

// ErrNoData is the consumer-facing signal that the origin had no data.
// Distinct from any generic failure, and from ErrNoRecords.
var ErrNoData = errors.New("source: no data")

// Op tags the operation a Record describes.
type Op int

const (
	// OpCreate marks a newly created item.
	OpCreate Op = iota

	// OpUpdate marks an item replaced by a newer version.
	OpUpdate

	// OpDelete marks a removed item.
	OpDelete
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Record is one raw operation as delivered by the origin.
type Record[T any] struct {
	// Op tags the operation.
	Op Op

	// Item is the subject of the operation.
	Item T

	// Prior is the previous version. Origins supply it for updates only.
	Prior *T

	// Last marks the final record of a batch.
	Last bool
}

// Convert maps a record stream onto the event vocabulary:
// create becomes Fetch, update becomes Change (carrying the prior
// version), delete becomes Delete. ErrNoRecords is remapped to
// ErrNoData; every other error passes through unchanged.
func Convert[T any](src stream.Stream[Record[T]]) stream.Stream[event.Event[T]] {
	return func(ctx context.Context) <-chan stream.Item[event.Event[T]] {
		out := make(chan stream.Item[event.Event[T]])
		in := src(ctx)

		go func() {
			defer close(out)
			for it := range in {
				if it.Err != nil {
					err := it.Err
					if errors.Is(err, ErrNoRecords) {
						err = ErrNoData
					}
					if !stream.Send(ctx, out, stream.Item[event.Event[T]]{Err: err}) {
						return
					}
					continue
				}

				var evt event.Event[T]
				switch it.Value.Op {
				case OpCreate:
					evt = event.Fetch(it.Value.Item, it.Value.Last)
				case OpUpdate:
					evt = event.Change(it.Value.Item, it.Value.Prior, it.Value.Last)
				case OpDelete:
					evt = event.Delete(it.Value.Item, it.Value.Last)
				default:
					// Unknown ops are a contract violation upstream;
					// surface them rather than guessing.
					if !stream.Send(ctx, out, stream.Item[event.Event[T]]{
						Err: fmt.Errorf("source: unknown op %v", it.Value.Op),
					}) {
						return
					}
					continue
				}

				if !stream.Send(ctx, out, stream.Item[event.Event[T]]{Value: evt}) {
					return
				}
			}
		}()

		return out
	}
}
