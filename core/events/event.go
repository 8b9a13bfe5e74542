package events

import (
	"sync"

	"multiswap/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Carrier is implemented by events that expose their canonical payload.
type Carrier interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events emitted during a single call so the host can publish
// them only once the call commits.
type Buffer struct {
	events []Event
}

func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	return append([]Event(nil), b.events...)
}

// Payloads returns the canonical payloads of buffered events that carry one.
func (b *Buffer) Payloads() []*types.Event {
	out := make([]*types.Event, 0, len(b.events))
	for _, evt := range b.events {
		if carrier, ok := evt.(Carrier); ok {
			if payload := carrier.Event(); payload != nil {
				out = append(out, payload.Clone())
			}
		}
	}
	return out
}

// Fanout forwards every event to a dynamic set of subscribers.
type Fanout struct {
	mu   sync.RWMutex
	subs []Emitter
}

// Subscribe registers an emitter. Nil emitters are ignored.
func (f *Fanout) Subscribe(e Emitter) {
	if e == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, e)
}

func (f *Fanout) Emit(evt Event) {
	f.mu.RLock()
	subs := append([]Emitter(nil), f.subs...)
	f.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}
