// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pubsub

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Subscriber receives one published message. A returned error marks the
// delivery as failed; it never reaches the publisher.
type Subscriber[M any] func(msg M) error

// Handle identifies one registration. The zero Handle is never issued.
type Handle struct {
	id uint64
}

// Valid reports whether h was issued by Subscribe.
func (h Handle) Valid() bool {
	return h.id != 0
}

type registration[M any] struct {
	id uint64
	fn Subscriber[M]
}

// Delivery reports the outcome of a Publish.
type Delivery struct {
	Delivered int
	Failed    int
}

// Hub maps channel keys to ordered subscriber lists.
//
// Lists are copy-on-write: Publish iterates the slice that was current when
// it started, so subscribe and unsubscribe never disturb an iteration in
// progress.
type Hub[K comparable, M any] struct {
	name   string
	nextID atomic.Uint64

	mu       sync.RWMutex
	channels map[K][]registration[M]
	keys     map[uint64]K
}

// New returns an empty hub. name tags its log lines.
func New[K comparable, M any](name string) *Hub[K, M] {
	return &Hub[K, M]{
		name:     name,
		channels: make(map[K][]registration[M]),
		keys:     make(map[uint64]K),
	}
}

// Subscribe appends fn to key's subscriber list. Registering the same
// function twice yields two independent registrations.
func (h *Hub[K, M]) Subscribe(key K, fn Subscriber[M]) Handle {
	id := h.nextID.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.channels[key]
	subs := make([]registration[M], len(old), len(old)+1)
	copy(subs, old)
	h.channels[key] = append(subs, registration[M]{id: id, fn: fn})
	h.keys[id] = key

	return Handle{id: id}
}

// Unsubscribe removes the registration behind handle. It reports false if
// the handle is zero, unknown or was already removed.
func (h *Hub[K, M]) Unsubscribe(handle Handle) bool {
	if !handle.Valid() {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.keys[handle.id]
	if !ok {
		return false
	}
	delete(h.keys, handle.id)

	old := h.channels[key]
	if len(old) == 1 {
		delete(h.channels, key)
		return true
	}

	subs := make([]registration[M], 0, len(old)-1)
	for _, r := range old {
		if r.id != handle.id {
			subs = append(subs, r)
		}
	}
	h.channels[key] = subs
	return true
}

// Publish invokes every subscriber of key once, in registration order, and
// returns after the last one. Failures and panics are isolated per
// subscriber.
func (h *Hub[K, M]) Publish(key K, msg M) Delivery {
	h.mu.RLock()
	subs := h.channels[key]
	h.mu.RUnlock()

	var d Delivery
	for _, r := range subs {
		if err := h.deliver(r, msg); err != nil {
			d.Failed++
			slog.Warn("subscriber delivery failed",
				"hub", h.name,
				"channel", fmt.Sprint(key),
				"subscription", r.id,
				"error", err,
			)
			continue
		}
		d.Delivered++
	}
	return d
}

func (h *Hub[K, M]) deliver(r registration[M], msg M) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("subscriber panic: %v", p)
		}
	}()
	return r.fn(msg)
}

// Subscribers returns the number of registrations under key.
func (h *Hub[K, M]) Subscribers(key K) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[key])
}

// Len returns the number of registrations across all keys.
func (h *Hub[K, M]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.keys)
}
