// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/voting"
)

type Config struct {
	SendBuffer     int      // frames queued per connection before it counts as slow
	AllowedOrigins []string // empty allows every origin
}

// Gateway binds each websocket connection to exactly one subscription on
// one of the three broadcast channels.
type Gateway struct {
	cfg      Config
	polls    voting.PollDirectory
	results  *broadcast.Results
	admin    *broadcast.Admin
	events   *broadcast.Events
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func New(cfg Config, polls voting.PollDirectory, results *broadcast.Results, admin *broadcast.Admin, events *broadcast.Events) *Gateway {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	g := &Gateway{
		cfg:     cfg,
		polls:   polls,
		results: results,
		admin:   admin,
		events:  events,
		clients: make(map[*client]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{ProtocolMsgpack, ProtocolJSON},
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || middleware.OriginAllowed(cfg.AllowedOrigins, origin)
		},
	}
	return g
}

// PollResults handles GET /polls/{pollId}/results
// The first frames are the current count of every option, followed by each
// change as it happens.
func (g *Gateway) PollResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if _, err := uuid.Parse(pollID); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid poll id")
		return
	}

	poll, err := g.polls.GetPoll(r.Context(), pollID)
	if errors.Is(err, voting.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	options := make([]string, len(poll.Options))
	for i, o := range poll.Options {
		options[i] = o.ID
	}

	// Room for the snapshot on top of the regular buffer
	g.serve(w, r, broadcast.NamespaceResults, g.cfg.SendBuffer+len(options), func(c *client) (func(), error) {
		h, err := g.results.Subscribe(pollID, options, func(m models.ResultsMessage) error {
			return c.deliver(m)
		})
		if err != nil {
			return nil, err
		}
		return func() { g.results.Unsubscribe(h) }, nil
	})
}

// AdminUpdates handles GET /admin/events/{eventId}/updates
func (g *Gateway) AdminUpdates(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	if _, err := uuid.Parse(eventID); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	g.serve(w, r, broadcast.NamespaceAdmin, g.cfg.SendBuffer, func(c *client) (func(), error) {
		h := g.admin.Subscribe(eventID, func(m models.AdminMessage) error {
			return c.deliver(models.NewAdminEnvelope(m))
		})
		return func() { g.admin.Unsubscribe(h) }, nil
	})
}

// EventUpdates handles GET /events/updates
func (g *Gateway) EventUpdates(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, broadcast.NamespaceEvents, g.cfg.SendBuffer, func(c *client) (func(), error) {
		h := g.events.Subscribe(func(m models.GlobalMessage) error {
			return c.deliver(models.NewGlobalEnvelope(m))
		})
		return func() { g.events.Unsubscribe(h) }, nil
	})
}

// serve upgrades the request, subscribes the connection and blocks until
// it ends. The subscription is released exactly once, whatever ends the
// connection.
func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, namespace string, buffer int, subscribe func(*client) (func(), error)) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		slog.Debug("websocket upgrade failed", "namespace", namespace, "error", err)
		return
	}

	c := newClient(conn, namespace, buffer)
	go c.writePump()

	if !g.track(c) {
		c.close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer g.untrack(c)

	metrics.Connections.WithLabelValues(namespace).Inc()
	defer metrics.Connections.WithLabelValues(namespace).Dec()

	unsubscribe, err := subscribe(c)
	if err != nil {
		slog.Warn("websocket subscribe failed", "namespace", namespace, "error", err)
		c.close(websocket.CloseInternalServerErr, "")
		return
	}
	var once sync.Once
	release := func() { once.Do(unsubscribe) }
	defer release()

	slog.Debug("websocket subscribed",
		"namespace", namespace,
		"path", r.URL.Path,
		"protocol", conn.Subprotocol(),
	)

	c.readPump()

	// The peer left or the connection was closed from our side
	release()
	c.close(websocket.CloseNormalClosure, "")
}

// Close disconnects every client. Connections opened afterwards are
// refused.
func (g *Gateway) Close() {
	g.mu.Lock()
	clients := g.clients
	g.clients = nil
	g.mu.Unlock()

	for c := range clients {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	slog.Info("websocket gateway closed", "connections", len(clients))
}

// Connections returns the number of open websocket connections.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

func (g *Gateway) track(c *client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients == nil {
		return false
	}
	g.clients[c] = struct{}{}
	return true
}

func (g *Gateway) untrack(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, c)
}
