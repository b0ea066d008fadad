package events

import (
	"sync"
	"time"
)

// InMemoryBus is a thread-safe in-process event bus.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	history  []Event
	maxHist  int
}

// NewInMemoryBus creates an InMemoryBus with a 1000-event history cap.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[int]Handler),
		maxHist:  1000,
	}
}

// Publish appends the event to history and delivers it to every subscriber.
func (b *InMemoryBus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	// Collect handlers to invoke outside the lock
	targets := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		targets = append(targets, h)
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(ev)
	}
}

// Subscribe registers a handler for all published events.
// The returned function unsubscribes the handler.
func (b *InMemoryBus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// History returns up to limit recent events, oldest first. A non-positive
// limit returns everything retained.
func (b *InMemoryBus) History(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if limit > 0 && len(b.history) > limit {
		start = len(b.history) - limit
	}
	out := make([]Event, len(b.history)-start)
	copy(out, b.history[start:])
	return out
}
