/*
Package weave reconciles an incrementally updating collection of parent
items with incrementally updating related data, producing one coherent,
ordered stream of item events suitable for driving an incremental UI
list.

# Overview

weave is a Go library for composing event streams. A parent stream
describes a principal collection (Fetch, Change, Delete per item);
attachments describe how related data folds into it:

  - attach.List merges a child collection into parents keyed by
    identifier, with many-to-many fan-out and buffering of children that
    arrive before their parent.
  - attach.Lookup merges a single cached value into every parent
    sharing a lookup code.

Compose merges one parent stream with any number of attachments into a
single output stream; Visible rewrites Change events into synthetic
Fetch and Delete events at visibility boundaries.

# Basic Usage

Build a pipeline, then subscribe it:

	lineItems := attach.NewList(attach.ListConfig[*Order, LineItem, string]{
	    Source:     func() stream.Stream[event.Event[LineItem]] { return itemEvents },
	    ParentKeys: func(li LineItem) []string { return []string{li.OrderID} },
	    ParentKey:  func(o *Order) string { return o.ID },
	    Apply:      func(o *Order, e event.Event[LineItem]) { o.Items = append(o.Items, e.Item) },
	    Transfer:   func(from, to *Order) { to.Items = from.Items },
	})

	pipe := weave.New[*Order]().
	    Source(orderEvents).
	    Attach(lineItems)

	for it := range pipe.Open(ctx) {
	    if it.Err != nil {
	        log.Fatal(it.Err)
	    }
	    render(it.Value)
	}

# Execution Model

Each subscription runs a single event loop. Every handler invocation
runs to completion before the next event from any source is processed,
so attachment state needs no coordination beyond that loop. Ordering is
preserved per source; no relative order is guaranteed across sources.
Cancelling the subscription context cancels the parent and every
attachment subscription, after which no handler runs.

Errors from the parent source propagate in-band and terminate the
subscription. Errors from attachment sources are discarded: one broken
attachment must not destabilize the composed output.

# Boundaries

Package source converts raw create/update/delete records into the event
vocabulary, remapping the origin's "no records" condition into a
distinct signal. Package hub multiplexes a composed stream with
externally pushed UI actions into one consumer stream with attach-once
semantics.
*/
package weave
