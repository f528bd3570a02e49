// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tally keeps the live vote count of every poll option.
//
// Each (poll, option) counter is atomic on its own. Counters of different
// options are not updated together; callers that move a vote between two
// options must provide that atomicity themselves.
package tally

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrUnderflow means a decrement hit a missing or zero counter, i.e. the
// tally no longer matches the votes that produced it.
var ErrUnderflow = errors.New("tally underflow")

type pollCounts struct {
	mu      sync.RWMutex
	options map[string]*atomic.Int64
}

type Store struct {
	mu    sync.RWMutex
	polls map[string]*pollCounts
}

func New() *Store {
	return &Store{polls: make(map[string]*pollCounts)}
}

func (s *Store) poll(pollID string, create bool) *pollCounts {
	s.mu.RLock()
	p := s.polls[pollID]
	s.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p = s.polls[pollID]; p == nil {
		p = &pollCounts{options: make(map[string]*atomic.Int64)}
		s.polls[pollID] = p
	}
	return p
}

func (p *pollCounts) counter(optionID string, create bool) *atomic.Int64 {
	p.mu.RLock()
	c := p.options[optionID]
	p.mu.RUnlock()
	if c != nil || !create {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c = p.options[optionID]; c == nil {
		c = new(atomic.Int64)
		p.options[optionID] = c
	}
	return c
}

// Increment adds one vote to the option and returns the new count.
func (s *Store) Increment(pollID, optionID string) int64 {
	return s.poll(pollID, true).counter(optionID, true).Add(1)
}

// Decrement removes one vote from the option and returns the new count.
// It never takes a counter below zero.
func (s *Store) Decrement(pollID, optionID string) (int64, error) {
	p := s.poll(pollID, false)
	if p == nil {
		return 0, fmt.Errorf("poll %s option %s: %w", pollID, optionID, ErrUnderflow)
	}
	c := p.counter(optionID, false)
	if c == nil {
		return 0, fmt.Errorf("poll %s option %s: %w", pollID, optionID, ErrUnderflow)
	}

	for {
		v := c.Load()
		if v <= 0 {
			return 0, fmt.Errorf("poll %s option %s: %w", pollID, optionID, ErrUnderflow)
		}
		if c.CompareAndSwap(v, v-1) {
			return v - 1, nil
		}
	}
}

// Count returns the current count of one option, 0 if it was never voted on.
func (s *Store) Count(pollID, optionID string) int64 {
	p := s.poll(pollID, false)
	if p == nil {
		return 0
	}
	c := p.counter(optionID, false)
	if c == nil {
		return 0
	}
	return c.Load()
}

// Snapshot copies the counters of a poll. Options never voted on are absent.
func (s *Store) Snapshot(pollID string) map[string]int64 {
	out := make(map[string]int64)
	p := s.poll(pollID, false)
	if p == nil {
		return out
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, c := range p.options {
		out[id] = c.Load()
	}
	return out
}

// Reset drops every counter of a poll.
func (s *Store) Reset(pollID string) {
	s.mu.Lock()
	delete(s.polls, pollID)
	s.mu.Unlock()
}
