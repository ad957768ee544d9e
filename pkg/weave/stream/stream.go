// Package stream provides the lazily activated event sequences weave
// stages are built from.
//
// A Stream is a function: calling it with a context subscribes and
// returns the channel the sequence is delivered on. Nothing runs before
// the call, so a Stream value can be stored, passed around, and composed
// without side effects. The channel closing means the sequence completed;
// cancelling the context abandons the subscription. Errors travel in-band
// as Item values with Err set, so a single channel carries the whole
// Rx-style value/error/complete protocol.
package stream

import "context"

// Item is one element of a stream: either a value or an error.
type Item[T any] struct {
	Value T
	Err   error
}

// Stream is a lazily activated sequence of T.
//
// Each call subscribes anew. Implementations must close the returned
// channel when the sequence completes and must stop promptly when ctx is
// cancelled.
type Stream[T any] func(ctx context.Context) <-chan Item[T]

// Of returns a stream that emits the given values in order, then
// completes.
func Of[T any](values ...T) Stream[T] {
	return func(ctx context.Context) <-chan Item[T] {
		out := make(chan Item[T])
		go func() {
			defer close(out)
			for _, v := range values {
				if !Send(ctx, out, Item[T]{Value: v}) {
					return
				}
			}
		}()
		return out
	}
}

// Fail returns a stream that emits a single error, then completes.
func Fail[T any](err error) Stream[T] {
	return func(ctx context.Context) <-chan Item[T] {
		out := make(chan Item[T])
		go func() {
			defer close(out)
			Send(ctx, out, Item[T]{Err: err})
		}()
		return out
	}
}

// FromChannel adapts an existing channel into a Stream. The adapter
// forwards until ch closes or the subscriber's context is cancelled.
//
// The channel is a single-use resource: subscribing the resulting stream
// more than once splits the sequence between subscribers.
func FromChannel[T any](ch <-chan Item[T]) Stream[T] {
	return func(ctx context.Context) <-chan Item[T] {
		out := make(chan Item[T])
		go func() {
			defer close(out)
			for {
				select {
				case it, ok := <-ch:
					if !ok {
						return
					}
					if !Send(ctx, out, it) {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Send delivers an item unless ctx is cancelled first.
// Returns false when the delivery was abandoned.
func Send[T any](ctx context.Context, out chan<- Item[T], it Item[T]) bool {
	select {
	case out <- it:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect subscribes s and gathers values until the stream completes,
// an in-band error arrives, or ctx is cancelled. It returns the values
// seen so far together with the terminating error, if any.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var values []T
	for it := range s(ctx) {
		if it.Err != nil {
			return values, it.Err
		}
		values = append(values, it.Value)
	}
	return values, ctx.Err()
}

// Drain subscribes s and discards everything until it completes.
func Drain[T any](ctx context.Context, s Stream[T]) {
	for range s(ctx) {
	}
}
