package weave

import (
	"context"

	"github.com/randalmurphal/weave/pkg/weave/attach"
	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// Pipeline is a mutable builder for a composed item-event stream.
// Use New to create one, then chain Source, Attach, VisibleWhen, and
// Options calls before opening it.
//
// Pipeline is NOT thread-safe during building. Configure it from a
// single goroutine, then call Stream or Open; the resulting stream can
// be subscribed from anywhere.
//
// Example:
//
//	pipe := weave.New[*Order]().
//	    Source(orderEvents).
//	    Attach(lineItems, customers).
//	    VisibleWhen(func(o *Order) bool { return o.Open }, func(o *Order) any { return o.ID })
//
//	for it := range pipe.Open(ctx) {
//	    ...
//	}
type Pipeline[P any] struct {
	source      stream.Stream[event.Event[P]]
	attachments []attach.Attachment[P]
	pred        func(P) bool
	visKey      func(P) any
	opts        []Option
}

// New creates a pipeline builder for parent type P.
func New[P any]() *Pipeline[P] {
	return &Pipeline[P]{}
}

// Source sets the parent event stream.
// Returns the pipeline for method chaining.
//
// Panics if s is nil or a source was already set.
func (p *Pipeline[P]) Source(s stream.Stream[event.Event[P]]) *Pipeline[P] {
	if s == nil {
		panic("weave: pipeline source cannot be nil")
	}
	if p.source != nil {
		panic("weave: pipeline source already set")
	}
	p.source = s
	return p
}

// Attach adds attachments to the pipeline.
// Returns the pipeline for method chaining.
//
// Panics if any attachment is nil.
func (p *Pipeline[P]) Attach(attachments ...attach.Attachment[P]) *Pipeline[P] {
	for _, a := range attachments {
		if a == nil {
			panic("weave: pipeline attachment cannot be nil")
		}
	}
	p.attachments = append(p.attachments, attachments...)
	return p
}

// VisibleWhen adds a visibility filter stage. key identifies items
// across versions; it must return comparable values.
// Returns the pipeline for method chaining.
//
// Panics if pred or key is nil, or a filter was already set.
func (p *Pipeline[P]) VisibleWhen(pred func(P) bool, key func(P) any) *Pipeline[P] {
	if pred == nil {
		panic("weave: visibility predicate cannot be nil")
	}
	if key == nil {
		panic("weave: visibility key cannot be nil")
	}
	if p.pred != nil {
		panic("weave: visibility filter already set")
	}
	p.pred = pred
	p.visKey = key
	return p
}

// Options appends stream options applied to every stage.
// Returns the pipeline for method chaining.
func (p *Pipeline[P]) Options(opts ...Option) *Pipeline[P] {
	p.opts = append(p.opts, opts...)
	return p
}

// Stream builds the composed (and optionally filtered) stream.
//
// Panics if no source was set. Building does not activate anything;
// the stream subscribes lazily like any other.
func (p *Pipeline[P]) Stream() stream.Stream[event.Event[P]] {
	if p.source == nil {
		panic("weave: pipeline requires a source")
	}
	s := Compose(p.source, p.attachments, p.opts...)
	if p.pred != nil {
		s = Visible(s, p.pred, p.visKey, p.opts...)
	}
	return s
}

// Open builds the stream and subscribes it with ctx.
func (p *Pipeline[P]) Open(ctx context.Context) <-chan stream.Item[event.Event[P]] {
	return p.Stream()(ctx)
}
