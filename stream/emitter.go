package stream

import (
	"context"
	"sync"
)

// Emitter receives a turn's events in production order. Implementations must
// tolerate Emit being called after a terminal event; such events are dropped.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, ev Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// ChannelEmitter delivers events over a channel, preserving emit order. Once
// a terminal event has been emitted the channel is closed and later emits are
// silently dropped.
type ChannelEmitter struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

var _ Emitter = (*ChannelEmitter)(nil)

// NewChannelEmitter returns an emitter buffered to the given size.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	return &ChannelEmitter{
		ch: make(chan Event, buffer),
	}
}

// Events returns the receive side of the emitter.
func (e *ChannelEmitter) Events() <-chan Event {
	return e.ch
}

func (e *ChannelEmitter) Emit(ctx context.Context, ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	select {
	case e.ch <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	if ev.Terminal() {
		e.closed = true
		close(e.ch)
	}
	return nil
}

// Close closes the channel without a terminal event. Intended for teardown
// paths where the turn never produced one.
func (e *ChannelEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// Collector records emitted events in order. Used in tests and in callers
// that want the full sequence after the turn completes.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

var _ Emitter = (*Collector)(nil)

func (c *Collector) Emit(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) > 0 && c.events[len(c.events)-1].Terminal() {
		return nil
	}
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of the recorded sequence.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
