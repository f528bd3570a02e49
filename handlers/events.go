// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// EventHandler serves event reads and the admin mutations that feed the
// admin and global channels.
type EventHandler struct {
	store         *store.Store
	ledger        *ledger.Ledger
	results       *broadcast.Results
	announcer     *broadcast.Announcer
	adminPersonID string
}

func NewEventHandler(s *store.Store, l *ledger.Ledger, results *broadcast.Results, announcer *broadcast.Announcer, adminPersonID string) *EventHandler {
	return &EventHandler{store: s, ledger: l, results: results, announcer: announcer, adminPersonID: adminPersonID}
}

// ListEvents handles GET /api/events
// The admin sees every event; other users see the categories they may vote
// on, or everything when their list is empty.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonID(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var allowed []string
	if h.adminPersonID == "" || personID != h.adminPersonID {
		user, err := h.store.GetUser(r.Context(), personID)
		if errors.Is(err, store.ErrNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			slog.Error("failed to query user", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		allowed = user.AllowedCategories
	}

	events, err := h.store.ListEvents(r.Context())
	if err != nil {
		slog.Error("failed to list events", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	visible := events[:0]
	for _, ev := range events {
		if len(allowed) == 0 || contains(allowed, ev.Category) {
			visible = append(visible, ev)
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.EventsResponse{Events: visible})
}

// CreateEvent handles POST /api/events (admin only)
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	event, err := h.store.CreateEvent(r.Context(), req.Title, req.Category)
	if err != nil {
		slog.Error("failed to create event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	slog.Info("event created", "event_id", event.ID, "category", event.Category)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateEventResponse{EventID: event.ID, Event: event})
}

// ListPolls handles GET /api/events/{eventId}/polls
// Scores are the live tally counts.
func (h *EventHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	if !validIDs(w, eventID) {
		return
	}

	personID, ok := middleware.PersonID(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	event, err := h.store.EventPolls(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to query polls", "error", err, "event_id", eventID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !h.allowed(w, r, personID, event.Category) {
		return
	}

	polls := make([]models.ScoredPoll, 0, len(event.Polls))
	for _, p := range event.Polls {
		ids := make([]string, len(p.Options))
		for i, o := range p.Options {
			ids[i] = o.ID
		}
		scores := make(map[string]int64, len(ids))
		for _, m := range h.results.Snapshot(p.ID, ids) {
			scores[m.OptionID] = m.Votes
		}

		sp := models.ScoredPoll{ID: p.ID, EventID: p.EventID, Title: p.Title, Options: make([]models.ScoredOption, len(p.Options))}
		for i, o := range p.Options {
			sp.Options[i] = models.ScoredOption{ID: o.ID, Title: o.Title, Score: scores[o.ID]}
		}
		polls = append(polls, sp)
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollsResponse{Polls: polls})
}

// GetEvent handles GET /api/events/{eventId}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	if !validIDs(w, eventID) {
		return
	}

	personID, ok := middleware.PersonID(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	event, err := h.store.GetEvent(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to query event", "error", err, "event_id", eventID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !h.allowed(w, r, personID, event.Category) {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EventResponse{Event: event})
}

// allowed writes an error and returns false when personID is a listed user
// without access to category.
func (h *EventHandler) allowed(w http.ResponseWriter, r *http.Request, personID, category string) bool {
	user, err := h.store.GetUser(r.Context(), personID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}
	if err == nil && len(user.AllowedCategories) > 0 && !contains(user.AllowedCategories, category) {
		middleware.ErrorResponse(w, http.StatusForbidden, "You don't have access to this event type")
		return false
	}
	return true
}

// UpdateEvent handles PATCH /api/events/{eventId} (admin only)
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	if !validIDs(w, eventID) {
		return
	}

	var req models.UpdateEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ActivePollID.Value != nil {
		if _, err := uuid.Parse(*req.ActivePollID.Value); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "activePollId must be a UUID or null")
			return
		}
	}

	event, err := h.store.UpdateEvent(r.Context(), eventID, req)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to update event", "error", err, "event_id", eventID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update event")
		return
	}

	data := map[string]any{"event": event}
	switch {
	case req.Active != nil:
		h.announcer.EventActivation(eventID, *req.Active, data)
	case req.ActivePollID.Set:
		h.announcer.PollActivated(eventID, data)
	default:
		h.announcer.EventUpdated(eventID, data)
	}

	slog.Info("event updated", "event_id", eventID)

	middleware.JSONResponse(w, http.StatusOK, models.EventResponse{Event: event})
}

// CreatePoll handles POST /api/events/{eventId}/polls (admin only)
// With an id in the body the existing poll's title and options are
// replaced, and every vote on it is dropped.
func (h *EventHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	if !validIDs(w, eventID) {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	for i := range req.Options {
		req.Options[i] = strings.TrimSpace(req.Options[i])
		if req.Options[i] == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "options must not be empty")
			return
		}
	}

	if req.ID != "" {
		h.replacePoll(w, r, eventID, req)
		return
	}

	poll, err := h.store.CreatePoll(r.Context(), eventID, req.Title, req.Options)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to create poll", "error", err, "event_id", eventID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	h.announcer.PollCreated(eventID, map[string]any{"poll": poll})

	slog.Info("poll created", "poll_id", poll.ID, "event_id", eventID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{PollID: poll.ID})
}

func (h *EventHandler) replacePoll(w http.ResponseWriter, r *http.Request, eventID string, req models.CreatePollRequest) {
	if !validIDs(w, req.ID) {
		return
	}

	// Votes on the poll are held back until the rows and the tally are both
	// cleared
	var poll models.Poll
	err := h.ledger.ReplacePoll(req.ID, func() error {
		var err error
		poll, err = h.store.ReplacePoll(r.Context(), req.ID, eventID, req.Title, req.Options)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to replace poll", "error", err, "poll_id", req.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	// Observers restart from zero
	ids := make([]string, len(poll.Options))
	for i, o := range poll.Options {
		ids[i] = o.ID
	}
	h.results.Publish(poll.ID, ids...)

	h.announcer.PollUpdated(eventID, map[string]any{"poll": poll})

	slog.Info("poll replaced", "poll_id", poll.ID, "event_id", eventID, "options", len(ids))

	middleware.JSONResponse(w, http.StatusOK, models.CreatePollResponse{PollID: poll.ID})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
