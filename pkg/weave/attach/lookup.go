package attach

import (
	"context"
	"sync"

	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// LookupConfig configures a Lookup attachment.
//
// P is the parent item type, V the looked-up value type, PK the parent
// identifier, K the lookup code shared between parents and values.
type LookupConfig[P, V any, PK, K comparable] struct {
	// Source provides the value stream. Called once per Open.
	Source func() stream.Stream[V]

	// Apply sets a parent's stored value. A nil value clears it.
	Apply func(P, *V)

	// Code extracts a parent's lookup code. ok=false means the parent
	// references no value and is skipped entirely.
	Code func(P) (K, bool)

	// ValueCode extracts a value's own code.
	ValueCode func(V) K

	// ParentKey extracts a parent's identifier. The live parent set is
	// keyed on it so a replacement version of the same logical parent
	// displaces the old reference instead of leaving both live.
	ParentKey func(P) PK
}

// Lookup attaches a single cached value to every parent sharing its
// lookup code.
//
// The value cache grows monotonically: last write wins and nothing is
// evicted, so a parent arriving long after its value was seen still
// reflects it immediately.
type Lookup[P, V any, PK, K comparable] struct {
	cfg LookupConfig[P, V, PK, K]

	mu      sync.Mutex
	parents map[PK]P
	cache   map[K]V
}

// NewLookup creates a Lookup attachment.
//
// Panics if any of Source, Apply, Code, ValueCode, or ParentKey is nil.
func NewLookup[P, V any, PK, K comparable](cfg LookupConfig[P, V, PK, K]) *Lookup[P, V, PK, K] {
	if cfg.Source == nil {
		panic("weave: lookup attachment requires a Source")
	}
	if cfg.Apply == nil {
		panic("weave: lookup attachment requires Apply")
	}
	if cfg.Code == nil {
		panic("weave: lookup attachment requires Code")
	}
	if cfg.ValueCode == nil {
		panic("weave: lookup attachment requires ValueCode")
	}
	if cfg.ParentKey == nil {
		panic("weave: lookup attachment requires ParentKey")
	}
	return &Lookup[P, V, PK, K]{
		cfg:     cfg,
		parents: make(map[PK]P),
		cache:   make(map[K]V),
	}
}

// Open subscribes the value source.
func (a *Lookup[P, V, PK, K]) Open(ctx context.Context) <-chan stream.Item[any] {
	return erase(ctx, a.cfg.Source())
}

// OnParent maintains the live parent set and applies the best-known
// cached value to every arriving parent.
func (a *Lookup[P, V, PK, K]) OnParent(evt event.Event[P]) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := a.cfg.ParentKey(evt.Item)
	delete(a.parents, key)
	if evt.Kind == event.KindDelete {
		return
	}

	a.parents[key] = evt.Item

	code, ok := a.cfg.Code(evt.Item)
	if !ok {
		return
	}
	if v, seen := a.cache[code]; seen {
		a.cfg.Apply(evt.Item, &v)
	} else {
		a.cfg.Apply(evt.Item, nil)
	}
}

// OnRelated overwrites the cache entry for the value's code and pushes
// one derived Change per live parent carrying that code.
//
// Derived events here carry no end-of-batch flag: value streams are not
// batch-bounded.
func (a *Lookup[P, V, PK, K]) OnRelated(value any, emit Sink[P]) {
	v, ok := value.(V)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	code := a.cfg.ValueCode(v)
	a.cache[code] = v

	for _, parent := range a.parents {
		pc, ok := a.cfg.Code(parent)
		if !ok || pc != code {
			continue
		}
		a.cfg.Apply(parent, &v)
		emit(event.Event[P]{Kind: event.KindChange, Item: parent})
	}
}

// CachedLen reports how many distinct lookup codes have been seen.
// Intended for diagnostics and tests.
func (a *Lookup[P, V, PK, K]) CachedLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cache)
}
