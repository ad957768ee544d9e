package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrEmitterClosed is returned by Send and Fail after Close.
var ErrEmitterClosed = errors.New("stream: emitter is closed")

// Emitter is a push-style stream source. Producers call Send, Fail, and
// Close; the consumer subscribes through Stream.
//
// An Emitter backs exactly one subscription: its Stream shares one
// underlying channel, so a second subscriber would steal items from the
// first.
type Emitter[T any] struct {
	ch chan Item[T]

	// mu serializes pushes against Close so a push never hits a closed
	// channel.
	mu     sync.Mutex
	closed bool
}

// NewEmitter creates an emitter with the given channel buffer.
// A buffer of 0 makes Send rendezvous with the subscriber.
func NewEmitter[T any](buffer int) *Emitter[T] {
	return &Emitter[T]{ch: make(chan Item[T], buffer)}
}

// Send pushes one value. It blocks until the subscriber (or buffer)
// accepts it or ctx is cancelled.
func (e *Emitter[T]) Send(ctx context.Context, v T) error {
	return e.push(ctx, Item[T]{Value: v})
}

// Fail pushes an in-band error.
func (e *Emitter[T]) Fail(ctx context.Context, err error) error {
	return e.push(ctx, Item[T]{Err: err})
}

// Close completes the stream. Close is idempotent; Send and Fail return
// ErrEmitterClosed afterwards.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}

// Stream returns the subscriber side of the emitter.
func (e *Emitter[T]) Stream() Stream[T] {
	return FromChannel(e.ch)
}

func (e *Emitter[T]) push(ctx context.Context, it Item[T]) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEmitterClosed
	}

	select {
	case e.ch <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
