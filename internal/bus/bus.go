// Package bus provides the observer registry that carries simulation signals
// (day starts, price changes, sales, ...) from the core to its collaborators.
// Each producing package defines its own typed payloads; the bus only routes
// them by topic. Delivery order between subscribers is unspecified.
package bus

import (
	"log/slog"
	"sync"
)

// Topic names a signal stream, e.g. "market.price_changed".
type Topic string

// Event is a typed signal payload.
type Event interface {
	Topic() Topic
}

// Handler receives published events.
type Handler func(Event)

// Publisher is anything that accepts events. Components depend on this
// interface so they can publish to a Bus directly or to a Buffer.
type Publisher interface {
	Publish(Event)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a multicast registry. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[Topic][]subscription
	all    []subscription
	nextID uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[Topic][]subscription)}
}

// Subscribe registers h for one topic. The returned func removes it.
func (b *Bus) Subscribe(t Topic, h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[t] = append(b.topics[t], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.topics[t] = without(b.topics[t], id)
	}
}

// SubscribeAll registers h for every topic (used by the ledger).
func (b *Bus) SubscribeAll(h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = without(b.all, id)
	}
}

// Publish delivers e to every matching subscriber on the caller's goroutine.
// The handler list is copied first so handlers may subscribe or publish.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.topics[e.Topic()])+len(b.all))
	for _, s := range b.topics[e.Topic()] {
		targets = append(targets, s.handler)
	}
	for _, s := range b.all {
		targets = append(targets, s.handler)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		deliver(h, e)
	}
}

// deliver isolates subscriber panics so one bad observer can't stop the tick.
func deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("signal handler panicked", "topic", e.Topic(), "panic", r)
		}
	}()
	h(e)
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Buffer collects events for later delivery. The simulation publishes into a
// Buffer while it holds its write lock and flushes once the lock is released,
// so subscribers can call back into the simulation.
type Buffer struct {
	mu      sync.Mutex
	pending []Event
}

// Publish queues e.
func (q *Buffer) Publish(e Event) {
	if e == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
}

// Len returns the number of queued events.
func (q *Buffer) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush hands all queued events to p in publish order and empties the buffer.
func (q *Buffer) Flush(p Publisher) int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, e := range pending {
		p.Publish(e)
	}
	return len(pending)
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Recorder is a Publisher that keeps every event. Handy in tests and for
// collaborators that poll instead of subscribing.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish records e.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events carry topic t.
func (r *Recorder) Count(t Topic) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Topic() == t {
			n++
		}
	}
	return n
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
