// Package hub multiplexes a composed item-event stream with externally
// pushed UI-action values into one consumer-facing stream.
//
// The hub has no algorithmic content: it forwards both inputs as they
// arrive. Its only contracts are attach-once (a second Attach while
// already attached is a misuse error) and an idempotent Close that
// cancels every internal subscription.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/weave/pkg/weave/config"
	"github.com/randalmurphal/weave/pkg/weave/event"
	"github.com/randalmurphal/weave/pkg/weave/stream"
)

// MisuseError reports an API contract violation by the caller. It is
// fatal: the operation failed immediately and retrying cannot succeed.
type MisuseError struct {
	Op string
}

// Error implements the error interface.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("hub: %s", e.Op)
}

// Message is one element of the consumer stream: either a forwarded
// item event or a pushed UI action. Exactly one field is set.
type Message[P, A any] struct {
	Event  *event.Event[P]
	Action *A
}

// IsAction reports whether the message carries a UI action.
func (m Message[P, A]) IsAction() bool {
	return m.Action != nil
}

// Config configures a Hub.
type Config struct {
	// ActionBuffer is the buffer for pushed actions. Default: 16.
	ActionBuffer int

	// PushTimeout bounds how long Push blocks when the action buffer is
	// full. 0 means Push blocks until space frees up or its context is
	// cancelled.
	PushTimeout time.Duration

	// Logger logs attach/close transitions. Default: nil (no logging).
	Logger *slog.Logger
}

// FromConfig derives a hub Config from loaded configuration.
//
// Recognized keys:
//   - action_buffer (int): buffer for pushed actions
//   - push_timeout (duration): bound on a blocking Push
func FromConfig(cfg config.Config) Config {
	return Config{
		ActionBuffer: cfg.Int("action_buffer", 16),
		PushTimeout:  cfg.Duration("push_timeout", 0),
	}
}

// Hub merges one primary item-event stream with pushed UI actions.
type Hub[P, A any] struct {
	id          string
	logger      *slog.Logger
	pushTimeout time.Duration
	out         chan stream.Item[Message[P, A]]
	actions     chan A
	done        chan struct{}

	mu       sync.Mutex
	attached bool
	closed   bool
	cancel   context.CancelFunc
}

// New creates a hub.
func New[P, A any](cfg Config) *Hub[P, A] {
	if cfg.ActionBuffer <= 0 {
		cfg.ActionBuffer = 16
	}
	return &Hub[P, A]{
		id:          "hub-" + uuid.New().String()[:8],
		logger:      cfg.Logger,
		pushTimeout: cfg.PushTimeout,
		out:         make(chan stream.Item[Message[P, A]]),
		actions:     make(chan A, cfg.ActionBuffer),
		done:        make(chan struct{}),
	}
}

// Attach subscribes the primary stream and starts forwarding.
//
// A second Attach while already attached, or an Attach after Close,
// returns a *MisuseError. Misuse is a caller bug: it is never retried
// internally and must be prevented, not handled.
func (h *Hub[P, A]) Attach(ctx context.Context, src stream.Stream[event.Event[P]]) error {
	if src == nil {
		return &MisuseError{Op: "attach with nil stream"}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return &MisuseError{Op: "attach on closed hub"}
	}
	if h.attached {
		h.mu.Unlock()
		return &MisuseError{Op: "primary stream already attached"}
	}
	h.attached = true
	cctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("hub attached", slog.String("hub_id", h.id))
	}

	ch := src(cctx)
	go func() {
		defer close(h.out)
		for {
			select {
			case it, ok := <-ch:
				if !ok {
					return
				}
				var msg stream.Item[Message[P, A]]
				if it.Err != nil {
					msg = stream.Item[Message[P, A]]{Err: it.Err}
				} else {
					evt := it.Value
					msg = stream.Item[Message[P, A]]{Value: Message[P, A]{Event: &evt}}
				}
				if !h.deliver(cctx, msg) {
					return
				}

			case a := <-h.actions:
				action := a
				msg := stream.Item[Message[P, A]]{Value: Message[P, A]{Action: &action}}
				if !h.deliver(cctx, msg) {
					return
				}

			case <-h.done:
				return
			case <-cctx.Done():
				return
			}
		}
	}()

	return nil
}

func (h *Hub[P, A]) deliver(ctx context.Context, msg stream.Item[Message[P, A]]) bool {
	select {
	case h.out <- msg:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Push delivers one UI action to the consumer stream.
// Returns a *MisuseError after Close. When the action buffer is full,
// Push blocks up to the configured PushTimeout (forever when 0).
func (h *Hub[P, A]) Push(ctx context.Context, action A) error {
	select {
	case <-h.done:
		return &MisuseError{Op: "push on closed hub"}
	default:
	}

	if h.pushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.pushTimeout)
		defer cancel()
	}

	select {
	case h.actions <- action:
		return nil
	case <-h.done:
		return &MisuseError{Op: "push on closed hub"}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the consumer stream. The channel closes when the
// primary stream completes or the hub is closed.
func (h *Hub[P, A]) Messages() <-chan stream.Item[Message[P, A]] {
	return h.out
}

// Close shuts the hub down, cancelling all internal subscriptions.
// Close is idempotent.
func (h *Hub[P, A]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
	if h.cancel != nil {
		h.cancel()
	}
	if !h.attached {
		// No forwarder owns the consumer channel; close it here so
		// consumers unblock.
		close(h.out)
	}
	if h.logger != nil {
		h.logger.Debug("hub closed", slog.String("hub_id", h.id))
	}
}
