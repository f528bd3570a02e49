// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"sort"

	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/pubsub"
	"github.com/danielhkuo/livepoll/tally"
)

// Namespace names, also used as metric labels.
const (
	NamespaceResults = "results"
	NamespaceAdmin   = "admin"
	NamespaceEvents  = "events"
)

// GlobalKey is the only channel key of the global events namespace.
const GlobalKey = "*"

func record(namespace string, d pubsub.Delivery) {
	if d.Delivered > 0 {
		metrics.Deliveries.WithLabelValues(namespace, "delivered").Add(float64(d.Delivered))
	}
	if d.Failed > 0 {
		metrics.Deliveries.WithLabelValues(namespace, "failed").Add(float64(d.Failed))
	}
}

func subscribed(namespace string) {
	metrics.Subscribers.WithLabelValues(namespace).Inc()
}

func unsubscribed(namespace string, removed bool) {
	if removed {
		metrics.Subscribers.WithLabelValues(namespace).Dec()
	}
}

// Results fans tally changes out to the observers of each poll.
//
// Publishes for one poll are serialized and read the counter while holding
// the poll's lock, so observers never receive a count older than one they
// have already seen for the same option.
//
// The count sent is the one current at publish time, not the one produced
// by the vote that triggered the publish. Two concurrent votes on the same
// option can both land before either publishes; observers then receive the
// final count twice and never see the intermediate one. Every observer still
// ends on the current count.
type Results struct {
	hub   *pubsub.Hub[string, models.ResultsMessage]
	tally *tally.Store
	locks keylock.Map[string]
}

func NewResults(t *tally.Store) *Results {
	return &Results{
		hub:   pubsub.New[string, models.ResultsMessage](NamespaceResults),
		tally: t,
	}
}

// Publish sends the current count of each option to pollID's observers and
// returns the messages sent.
func (r *Results) Publish(pollID string, optionIDs ...string) []models.ResultsMessage {
	unlock := r.locks.Lock(pollID)
	defer unlock()

	msgs := make([]models.ResultsMessage, 0, len(optionIDs))
	for _, id := range optionIDs {
		msg := models.ResultsMessage{OptionID: id, Votes: r.tally.Count(pollID, id)}
		record(NamespaceResults, r.hub.Publish(pollID, msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

// Snapshot returns one message per option: first the given options in
// order, then any other counted option sorted by id.
func (r *Results) Snapshot(pollID string, options []string) []models.ResultsMessage {
	counts := r.tally.Snapshot(pollID)

	msgs := make([]models.ResultsMessage, 0, len(counts)+len(options))
	seen := make(map[string]bool, len(options))
	for _, id := range options {
		if seen[id] {
			continue
		}
		seen[id] = true
		msgs = append(msgs, models.ResultsMessage{OptionID: id, Votes: counts[id]})
	}

	var extra []string
	for id := range counts {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		msgs = append(msgs, models.ResultsMessage{OptionID: id, Votes: counts[id]})
	}
	return msgs
}

// Subscribe hands fn a snapshot of pollID, one message per option, and then
// registers it for every later change. Both happen under the poll's publish
// lock, so no change is lost or delivered before the snapshot. If fn fails
// on the snapshot, nothing is registered.
func (r *Results) Subscribe(pollID string, options []string, fn pubsub.Subscriber[models.ResultsMessage]) (pubsub.Handle, error) {
	unlock := r.locks.Lock(pollID)
	defer unlock()

	for _, msg := range r.Snapshot(pollID, options) {
		if err := fn(msg); err != nil {
			return pubsub.Handle{}, err
		}
	}

	h := r.hub.Subscribe(pollID, fn)
	subscribed(NamespaceResults)
	return h, nil
}

func (r *Results) Unsubscribe(h pubsub.Handle) bool {
	removed := r.hub.Unsubscribe(h)
	unsubscribed(NamespaceResults, removed)
	return removed
}

func (r *Results) Subscribers(pollID string) int {
	return r.hub.Subscribers(pollID)
}

// Admin carries per-event state transitions to admin observers.
type Admin struct {
	hub *pubsub.Hub[string, models.AdminMessage]
}

func NewAdmin() *Admin {
	return &Admin{hub: pubsub.New[string, models.AdminMessage](NamespaceAdmin)}
}

func (a *Admin) Subscribe(eventID string, fn pubsub.Subscriber[models.AdminMessage]) pubsub.Handle {
	h := a.hub.Subscribe(eventID, fn)
	subscribed(NamespaceAdmin)
	return h
}

func (a *Admin) Unsubscribe(h pubsub.Handle) bool {
	removed := a.hub.Unsubscribe(h)
	unsubscribed(NamespaceAdmin, removed)
	return removed
}

// Publish delivers msg on the channel of the event it names.
func (a *Admin) Publish(msg models.AdminMessage) pubsub.Delivery {
	d := a.hub.Publish(msg.Payload().EventID, msg)
	record(NamespaceAdmin, d)
	return d
}

func (a *Admin) Subscribers(eventID string) int {
	return a.hub.Subscribers(eventID)
}

// Events broadcasts event list changes to every observer.
type Events struct {
	hub *pubsub.Hub[string, models.GlobalMessage]
}

func NewEvents() *Events {
	return &Events{hub: pubsub.New[string, models.GlobalMessage](NamespaceEvents)}
}

func (e *Events) Subscribe(fn pubsub.Subscriber[models.GlobalMessage]) pubsub.Handle {
	h := e.hub.Subscribe(GlobalKey, fn)
	subscribed(NamespaceEvents)
	return h
}

func (e *Events) Unsubscribe(h pubsub.Handle) bool {
	removed := e.hub.Unsubscribe(h)
	unsubscribed(NamespaceEvents, removed)
	return removed
}

func (e *Events) Publish(msg models.GlobalMessage) pubsub.Delivery {
	d := e.hub.Publish(GlobalKey, msg)
	record(NamespaceEvents, d)
	return d
}

func (e *Events) Subscribers() int {
	return e.hub.Subscribers(GlobalKey)
}
