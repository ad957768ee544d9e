// Package event defines the item-event vocabulary shared by every weave
// stage.
//
// An Event describes one operation against a tracked collection:
//   - Fetch: an item entered the collection (initial load or re-appearance)
//   - Change: an existing item was replaced by a newer version
//   - Delete: an item left the collection
//
// Events are immutable once emitted. A Change may carry the prior version
// of the item; every event carries an end-of-batch flag so consumers can
// detect batch boundaries without counting.
package event

import "fmt"

// Kind tags the operation an Event describes.
type Kind int

const (
	// KindFetch marks an item entering the collection.
	KindFetch Kind = iota

	// KindChange marks an existing item being replaced by a newer version.
	KindChange

	// KindDelete marks an item leaving the collection.
	KindDelete
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindChange:
		return "change"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one operation against a collection of T.
//
// Treat an Event as a value: stages forward it or build a new one, they
// never mutate a received Event.
type Event[T any] struct {
	// Kind tags the operation.
	Kind Kind

	// Item is the subject of the operation. For Change this is the new
	// version; for Delete it is the removed item.
	Item T

	// Prior is the previous version of the item. Only Change events set
	// it, and only when the origin supplied one.
	Prior *T

	// Last marks the final event of a batch.
	Last bool
}

// Fetch builds a Fetch event for item.
func Fetch[T any](item T, last bool) Event[T] {
	return Event[T]{Kind: KindFetch, Item: item, Last: last}
}

// Change builds a Change event replacing prior with item.
// Prior may be nil when the origin does not supply the old version.
func Change[T any](item T, prior *T, last bool) Event[T] {
	return Event[T]{Kind: KindChange, Item: item, Prior: prior, Last: last}
}

// Delete builds a Delete event for item.
func Delete[T any](item T, last bool) Event[T] {
	return Event[T]{Kind: KindDelete, Item: item, Last: last}
}
