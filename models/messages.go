// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

// ResultsMessage is published on a poll's results channel whenever the
// count of one of its options changes.
type ResultsMessage struct {
	OptionID string `json:"optionId"`
	Votes    int64  `json:"votes"`
}

// AdminKind enumerates the message types of the per-event admin channel.
type AdminKind string

const (
	KindEventUpdated     AdminKind = "event_updated"
	KindEventActivated   AdminKind = "event_activated"
	KindEventDeactivated AdminKind = "event_deactivated"
	KindPollActivated    AdminKind = "poll_activated"
	KindPollCreated      AdminKind = "poll_created"
	KindPollUpdated      AdminKind = "poll_updated"
)

// AdminPayload is the body shared by every admin message variant.
type AdminPayload struct {
	EventID string
	Data    any
}

// AdminMessage is a sealed sum type; the variants are EventUpdated,
// EventActivated, EventDeactivated, PollActivated, PollCreated and
// PollUpdated.
type AdminMessage interface {
	Kind() AdminKind
	Payload() AdminPayload
	adminMessage()
}

type (
	EventUpdated     AdminPayload
	EventActivated   AdminPayload
	EventDeactivated AdminPayload
	PollActivated    AdminPayload
	PollCreated      AdminPayload
	PollUpdated      AdminPayload
)

func (EventUpdated) Kind() AdminKind     { return KindEventUpdated }
func (EventActivated) Kind() AdminKind   { return KindEventActivated }
func (EventDeactivated) Kind() AdminKind { return KindEventDeactivated }
func (PollActivated) Kind() AdminKind    { return KindPollActivated }
func (PollCreated) Kind() AdminKind      { return KindPollCreated }
func (PollUpdated) Kind() AdminKind      { return KindPollUpdated }

func (m EventUpdated) Payload() AdminPayload     { return AdminPayload(m) }
func (m EventActivated) Payload() AdminPayload   { return AdminPayload(m) }
func (m EventDeactivated) Payload() AdminPayload { return AdminPayload(m) }
func (m PollActivated) Payload() AdminPayload    { return AdminPayload(m) }
func (m PollCreated) Payload() AdminPayload      { return AdminPayload(m) }
func (m PollUpdated) Payload() AdminPayload      { return AdminPayload(m) }

func (EventUpdated) adminMessage()     {}
func (EventActivated) adminMessage()   {}
func (EventDeactivated) adminMessage() {}
func (PollActivated) adminMessage()    {}
func (PollCreated) adminMessage()      {}
func (PollUpdated) adminMessage()      {}

// AdminEnvelope is the wire shape of an admin message.
type AdminEnvelope struct {
	Type    AdminKind `json:"type"`
	EventID string    `json:"eventId"`
	Data    any       `json:"data"`
}

func NewAdminEnvelope(m AdminMessage) AdminEnvelope {
	p := m.Payload()
	return AdminEnvelope{Type: m.Kind(), EventID: p.EventID, Data: p.Data}
}

// GlobalKind enumerates the message types of the global events channel.
type GlobalKind string

const (
	GlobalEventActivated   GlobalKind = "event_activated"
	GlobalEventDeactivated GlobalKind = "event_deactivated"
)

// GlobalMessage is a sealed sum type with the variants EventListActivated
// and EventListDeactivated.
type GlobalMessage interface {
	Kind() GlobalKind
	Body() any
	globalMessage()
}

type EventListActivated struct{ Data any }
type EventListDeactivated struct{ Data any }

func (EventListActivated) Kind() GlobalKind   { return GlobalEventActivated }
func (EventListDeactivated) Kind() GlobalKind { return GlobalEventDeactivated }

func (m EventListActivated) Body() any   { return m.Data }
func (m EventListDeactivated) Body() any { return m.Data }

func (EventListActivated) globalMessage()   {}
func (EventListDeactivated) globalMessage() {}

// GlobalEnvelope is the wire shape of a global events message.
type GlobalEnvelope struct {
	Type GlobalKind `json:"type"`
	Data any        `json:"data"`
}

func NewGlobalEnvelope(m GlobalMessage) GlobalEnvelope {
	return GlobalEnvelope{Type: m.Kind(), Data: m.Body()}
}
