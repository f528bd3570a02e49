// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"log/slog"

	"github.com/danielhkuo/livepoll/models"
)

// Announcer turns administrative transitions into admin and global
// publishes. It does not originate transitions.
type Announcer struct {
	admin  *Admin
	events *Events
}

func NewAnnouncer(admin *Admin, events *Events) *Announcer {
	return &Announcer{admin: admin, events: events}
}

func (a *Announcer) EventUpdated(eventID string, data any) {
	a.admin.Publish(models.EventUpdated{EventID: eventID, Data: data})
}

// EventActivation announces an activation change to the event's admin
// channel and to the global event list.
func (a *Announcer) EventActivation(eventID string, active bool, data any) {
	var d1, d2 int
	if active {
		d1 = a.admin.Publish(models.EventActivated{EventID: eventID, Data: data}).Delivered
		d2 = a.events.Publish(models.EventListActivated{Data: data}).Delivered
	} else {
		d1 = a.admin.Publish(models.EventDeactivated{EventID: eventID, Data: data}).Delivered
		d2 = a.events.Publish(models.EventListDeactivated{Data: data}).Delivered
	}
	slog.Info("event activation announced",
		"event_id", eventID,
		"active", active,
		"admin_deliveries", d1,
		"global_deliveries", d2,
	)
}

func (a *Announcer) PollActivated(eventID string, data any) {
	a.admin.Publish(models.PollActivated{EventID: eventID, Data: data})
}

func (a *Announcer) PollCreated(eventID string, data any) {
	a.admin.Publish(models.PollCreated{EventID: eventID, Data: data})
}

func (a *Announcer) PollUpdated(eventID string, data any) {
	a.admin.Publish(models.PollUpdated{EventID: eventID, Data: data})
}
