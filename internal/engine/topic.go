package engine

import (
	"slices"
	"sync"
)

// Event names a subscription topic.
type Event string

// Topics an Engine publishes.
const (
	EventAdd    Event = "add"
	EventIgnore Event = "ignore"
	EventError  Event = "error"
	EventDone   Event = "done"
)

// Subscription identifies a registered handler. Pass it to Off to remove
// the handler. The zero Subscription is valid and removes nothing.
type Subscription struct {
	id    uint64
	event Event
}

// Event returns the topic of the subscription.
func (s Subscription) Event() Event {
	return s.event
}

type handler[T any] struct {
	id uint64
	fn func(T)
}

// topic is a list of handlers for one event type.
// Handlers run synchronously in registration order on the publishing
// goroutine; a handler may subscribe or unsubscribe without deadlocking.
type topic[T any] struct {
	mu       sync.RWMutex
	handlers []handler[T]
}

func (t *topic[T]) subscribe(id uint64, fn func(T)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler[T]{id: id, fn: fn})
}

func (t *topic[T]) unsubscribe(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.IndexFunc(t.handlers, func(h handler[T]) bool { return h.id == id })
	if i < 0 {
		return false
	}
	t.handlers = slices.Delete(t.handlers, i, i+1)
	return true
}

func (t *topic[T]) publish(v T) {
	t.mu.RLock()
	handlers := slices.Clone(t.handlers)
	t.mu.RUnlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

func (t *topic[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}
