// Package notify fans change events out to subscribers.
package notify

import "sync"

// Hub delivers published values to every subscriber, synchronously and in
// subscription order.
type Hub[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every subscriber with v. It must not be called while
// holding a lock a subscriber may need.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	subs := make([]func(T), len(h.subs))
	for i, s := range h.subs {
		subs[i] = s.fn
	}
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(v)
	}
}
