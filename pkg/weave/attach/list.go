package attach

import (
	"context"
	"sync"

	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/observability"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// ListConfig configures a List attachment.
//
// P is the parent item type, C the child item type, K the comparable
// parent identifier both sides are joined on.
type ListConfig[P, C any, K comparable] struct {
	// Source provides the child event stream. Called once per Open so
	// each composition subscription gets a fresh sequence.
	Source func() stream.Stream[event.Event[C]]

	// ParentKeys extracts the identifiers of every parent a child
	// belongs to. A child may belong to several parents (fan-out) or,
	// transiently, to parents that have not arrived yet (buffering).
	ParentKeys func(C) []K

	// ParentKey extracts a parent's own identifier.
	ParentKey func(P) K

	// Apply folds one child event into a parent's stored collection.
	Apply func(P, event.Event[C])

	// Transfer copies accumulated children from an old parent version to
	// its replacement. Parent items are immutable values: an update
	// delivers a fresh object that must inherit previously attached
	// children.
	Transfer func(from, to P)

	// MaxPending caps the per-parent buffer of children that arrived
	// before their parent. 0 means unbounded, matching the behavior of
	// an uncapped origin; when the cap is hit the oldest buffered event
	// is dropped and counted.
	MaxPending int

	// Metrics records buffering activity. Defaults to
	// observability.NoopMetrics.
	Metrics observability.MetricsRecorder
}

// List attaches a growable child collection to parents by identifier.
//
// Children arriving before their parent are buffered per identifier and
// replayed, in arrival order, the moment the parent is registered.
// Children arriving after are applied immediately and surface as derived
// Change events for each registered owner.
type List[P, C any, K comparable] struct {
	cfg ListConfig[P, C, K]

	mu       sync.Mutex
	registry map[K]P
	pending  map[K][]event.Event[C]
}

// NewList creates a List attachment.
//
// Panics if any of Source, ParentKeys, ParentKey, Apply, or Transfer is
// nil: an attachment missing one of them cannot uphold its contract, and
// the mistake is always a programming error.
func NewList[P, C any, K comparable](cfg ListConfig[P, C, K]) *List[P, C, K] {
	if cfg.Source == nil {
		panic("weave: list attachment requires a Source")
	}
	if cfg.ParentKeys == nil {
		panic("weave: list attachment requires ParentKeys")
	}
	if cfg.ParentKey == nil {
		panic("weave: list attachment requires ParentKey")
	}
	if cfg.Apply == nil {
		panic("weave: list attachment requires Apply")
	}
	if cfg.Transfer == nil {
		panic("weave: list attachment requires Transfer")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	return &List[P, C, K]{
		cfg:      cfg,
		registry: make(map[K]P),
		pending:  make(map[K][]event.Event[C]),
	}
}

// Open subscribes the child source.
func (a *List[P, C, K]) Open(ctx context.Context) <-chan stream.Item[any] {
	return erase(ctx, a.cfg.Source())
}

// OnParent updates the registry and replays buffered children.
//
// The drained children are applied directly onto the new parent object
// with no emission of their own: the parent event itself, forwarded by
// the operator after this call, already carries the final state.
func (a *List[P, C, K]) OnParent(evt event.Event[P]) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := a.cfg.ParentKey(evt.Item)
	prev, existed := a.registry[key]
	delete(a.registry, key)

	if evt.Kind == event.KindDelete {
		// A parent deleted before it ever arrived discards its buffer:
		// those children have no owner to replay onto.
		delete(a.pending, key)
		return
	}

	if existed {
		a.cfg.Transfer(prev, evt.Item)
	}
	a.registry[key] = evt.Item

	if buffered, ok := a.pending[key]; ok {
		delete(a.pending, key)
		for _, child := range buffered {
			a.cfg.Apply(evt.Item, child)
			a.cfg.Metrics.RecordPending(context.Background(), observability.PendingReplayed)
		}
	}
}

// OnRelated applies one child event to every registered owner, emitting
// one derived Change per owner, and buffers it for owners not yet seen.
func (a *List[P, C, K]) OnRelated(value any, emit Sink[P]) {
	child, ok := value.(event.Event[C])
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, key := range a.cfg.ParentKeys(child.Item) {
		parent, registered := a.registry[key]
		if !registered {
			buf := append(a.pending[key], child)
			if a.cfg.MaxPending > 0 && len(buf) > a.cfg.MaxPending {
				buf = buf[1:]
				a.cfg.Metrics.RecordPending(context.Background(), observability.PendingDropped)
			}
			a.pending[key] = buf
			a.cfg.Metrics.RecordPending(context.Background(), observability.PendingBuffered)
			continue
		}
		a.cfg.Apply(parent, child)
		emit(event.Event[P]{Kind: event.KindChange, Item: parent, Last: child.Last})
	}
}

// PendingLen reports how many child events are buffered for key.
// Intended for diagnostics and tests.
func (a *List[P, C, K]) PendingLen(key K) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending[key])
}
