// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package keylock provides one mutex per key. Holders of different keys
// never block each other; entries are reference counted and removed once
// no goroutine holds or waits for them.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map is a set of lazily created per-key mutexes. The zero value is ready
// to use.
type Map[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

// Lock blocks until the mutex for key is held and returns the function that
// releases it.
func (m *Map[K]) Lock(key K) (unlock func()) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[K]*entry)
	}
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or waited on.
func (m *Map[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

type rwEntry struct {
	mu   sync.RWMutex
	refs int
}

// RWMap is Map with shared and exclusive holders per key. The zero value is
// ready to use.
type RWMap[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*rwEntry
}

func (m *RWMap[K]) acquire(key K) *rwEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks == nil {
		m.locks = make(map[K]*rwEntry)
	}
	e, ok := m.locks[key]
	if !ok {
		e = &rwEntry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *RWMap[K]) release(key K, e *rwEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// RLock blocks until key is held shared. Shared holders of one key do not
// block each other.
func (m *RWMap[K]) RLock(key K) (unlock func()) {
	e := m.acquire(key)
	e.mu.RLock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.RUnlock()
			m.release(key, e)
		})
	}
}

// Lock blocks until key is held exclusively.
func (m *RWMap[K]) Lock(key K) (unlock func()) {
	e := m.acquire(key)
	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.release(key, e)
		})
	}
}

// Len returns the number of keys currently held or waited on.
func (m *RWMap[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
