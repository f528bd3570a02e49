// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/tally"
	"github.com/danielhkuo/livepoll/voting"
)

type fakeDirectory map[string]models.Poll

func (d fakeDirectory) GetPoll(ctx context.Context, pollID string) (models.Poll, error) {
	p, ok := d[pollID]
	if !ok {
		return models.Poll{}, fmt.Errorf("poll %s: %w", pollID, voting.ErrNotFound)
	}
	return p, nil
}

type testEnv struct {
	gw        *Gateway
	server    *httptest.Server
	tally     *tally.Store
	results   *broadcast.Results
	admin     *broadcast.Admin
	events    *broadcast.Events
	announcer *broadcast.Announcer
	pollID    string
	options   []string
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	pollID := uuid.NewString()
	options := []string{uuid.NewString(), uuid.NewString()}
	dir := fakeDirectory{pollID: {
		ID:      pollID,
		EventID: uuid.NewString(),
		Options: []models.Option{{ID: options[0], Title: "A"}, {ID: options[1], Title: "B"}},
	}}

	env := &testEnv{
		tally:   tally.New(),
		admin:   broadcast.NewAdmin(),
		events:  broadcast.NewEvents(),
		pollID:  pollID,
		options: options,
	}
	env.results = broadcast.NewResults(env.tally)
	env.announcer = broadcast.NewAnnouncer(env.admin, env.events)
	env.gw = New(cfg, dir, env.results, env.admin, env.events)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /polls/{pollId}/results", env.gw.PollResults)
	mux.HandleFunc("GET /admin/events/{eventId}/updates", env.gw.AdminUpdates)
	mux.HandleFunc("GET /events/updates", env.gw.EventUpdates)
	env.server = httptest.NewServer(mux)
	t.Cleanup(func() {
		env.gw.Close()
		env.server.Close()
	})
	return env
}

func (e *testEnv) url(path string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + path
}

func (e *testEnv) dial(t *testing.T, path string, protocols ...string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: protocols, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(e.url(path), nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Failed to dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("Expected text frame, got %d", kind)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", data, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollResults_SnapshotThenChanges(t *testing.T) {
	env := newTestEnv(t, Config{SendBuffer: 4})
	env.tally.Increment(env.pollID, env.options[0])

	conn := env.dial(t, "/polls/"+env.pollID+"/results")

	var first, second models.ResultsMessage
	readJSON(t, conn, &first)
	readJSON(t, conn, &second)

	if first != (models.ResultsMessage{OptionID: env.options[0], Votes: 1}) {
		t.Errorf("Unexpected first snapshot frame: %+v", first)
	}
	if second != (models.ResultsMessage{OptionID: env.options[1], Votes: 0}) {
		t.Errorf("Unexpected second snapshot frame: %+v", second)
	}

	env.tally.Increment(env.pollID, env.options[1])
	env.results.Publish(env.pollID, env.options[1])

	var change models.ResultsMessage
	readJSON(t, conn, &change)
	if change != (models.ResultsMessage{OptionID: env.options[1], Votes: 1}) {
		t.Errorf("Unexpected change frame: %+v", change)
	}
}

func TestPollResults_Msgpack(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.tally.Increment(env.pollID, env.options[1])
	env.tally.Increment(env.pollID, env.options[1])

	conn := env.dial(t, "/polls/"+env.pollID+"/results", ProtocolMsgpack)
	if conn.Subprotocol() != ProtocolMsgpack {
		t.Fatalf("Expected msgpack subprotocol, got %q", conn.Subprotocol())
	}

	type frame struct {
		OptionID string `msgpack:"optionId"`
		Votes    int64  `msgpack:"votes"`
	}

	var got []frame
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read frame: %v", err)
		}
		if kind != websocket.BinaryMessage {
			t.Fatalf("Expected binary frame, got %d", kind)
		}
		var f frame
		if err := msgpack.Unmarshal(data, &f); err != nil {
			t.Fatalf("Failed to decode msgpack frame: %v", err)
		}
		got = append(got, f)
	}

	if got[1].OptionID != env.options[1] || got[1].Votes != 2 {
		t.Errorf("Unexpected snapshot: %+v", got)
	}
}

func TestPollResults_RejectedBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t, Config{})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"malformed id", "/polls/not-a-uuid/results", http.StatusBadRequest},
		{"unknown poll", "/polls/" + uuid.NewString() + "/results", http.StatusNotFound},
		{"malformed event id", "/admin/events/nope/updates", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(env.url(tt.path), nil)
			if !errors.Is(err, websocket.ErrBadHandshake) {
				t.Fatalf("Expected bad handshake, got %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	env := newTestEnv(t, Config{AllowedOrigins: []string{"https://poll.example"}})

	header := http.Header{"Origin": {"https://elsewhere.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(env.url("/events/updates"), header)
	if err == nil {
		t.Fatal("Expected handshake to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %+v", resp)
	}

	header = http.Header{"Origin": {"https://poll.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(env.url("/events/updates"), header)
	if err != nil {
		t.Fatalf("Expected allowed origin to connect: %v", err)
	}
	conn.Close()
}

func TestDisconnectUnsubscribes(t *testing.T) {
	env := newTestEnv(t, Config{})

	conn := env.dial(t, "/polls/"+env.pollID+"/results")
	var msg models.ResultsMessage
	readJSON(t, conn, &msg)

	waitFor(t, "subscription", func() bool { return env.results.Subscribers(env.pollID) == 1 })

	conn.Close()

	waitFor(t, "unsubscribe", func() bool { return env.results.Subscribers(env.pollID) == 0 })
	waitFor(t, "untrack", func() bool { return env.gw.Connections() == 0 })

	// Publishing to an empty channel is a no-op
	env.results.Publish(env.pollID, env.options[0])
}

func TestAdminUpdates(t *testing.T) {
	env := newTestEnv(t, Config{})
	eventID := uuid.NewString()

	conn := env.dial(t, "/admin/events/"+eventID+"/updates")
	waitFor(t, "admin subscription", func() bool { return env.admin.Subscribers(eventID) == 1 })

	// Another event's channel is not delivered here
	env.announcer.PollCreated(uuid.NewString(), map[string]string{"id": "other"})
	env.announcer.PollCreated(eventID, map[string]string{"id": "p1"})

	var got struct {
		Type    string            `json:"type"`
		EventID string            `json:"eventId"`
		Data    map[string]string `json:"data"`
	}
	readJSON(t, conn, &got)

	if got.Type != string(models.KindPollCreated) {
		t.Errorf("Expected poll_created, got %q", got.Type)
	}
	if got.EventID != eventID {
		t.Errorf("Expected event %s, got %s", eventID, got.EventID)
	}
	if got.Data["id"] != "p1" {
		t.Errorf("Unexpected data: %v", got.Data)
	}
}

func TestEventUpdates(t *testing.T) {
	env := newTestEnv(t, Config{})

	conn := env.dial(t, "/events/updates")
	waitFor(t, "global subscription", func() bool { return env.events.Subscribers() == 1 })

	env.announcer.EventActivation(uuid.NewString(), false, map[string]bool{"active": false})

	var got struct {
		Type string          `json:"type"`
		Data map[string]bool `json:"data"`
	}
	readJSON(t, conn, &got)

	if got.Type != string(models.GlobalEventDeactivated) {
		t.Errorf("Expected event_deactivated, got %q", got.Type)
	}
	if v, ok := got.Data["active"]; !ok || v {
		t.Errorf("Unexpected data: %v", got.Data)
	}
}

func TestClose(t *testing.T) {
	env := newTestEnv(t, Config{})

	conn := env.dial(t, "/events/updates")
	waitFor(t, "connection", func() bool { return env.gw.Connections() == 1 })

	env.gw.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected going-away close, got %v", err)
	}
	waitFor(t, "unsubscribe", func() bool { return env.events.Subscribers() == 0 })

	// New connections are turned away
	late, _, err := websocket.DefaultDialer.Dial(env.url("/events/updates"), nil)
	if err != nil {
		t.Fatalf("Upgrade should still succeed: %v", err)
	}
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected late connection to be closed, got %v", err)
	}
}

func TestClient_SlowConsumer(t *testing.T) {
	serverConn := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConn <- conn
	}))
	defer srv.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer peer.Close()

	conn := <-serverConn
	defer conn.Close()

	// No writer running, so nothing drains the buffer
	c := newClient(conn, broadcast.NamespaceResults, 1)

	if err := c.deliver(models.ResultsMessage{OptionID: "a", Votes: 1}); err != nil {
		t.Fatalf("First frame should fit: %v", err)
	}
	if err := c.deliver(models.ResultsMessage{OptionID: "a", Votes: 2}); !errors.Is(err, ErrSlowConsumer) {
		t.Fatalf("Expected ErrSlowConsumer, got %v", err)
	}
	if !c.closed() {
		t.Error("Expected client to be closed")
	}
	if err := c.deliver(models.ResultsMessage{OptionID: "a", Votes: 3}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		protocol string
		frame    int
	}{
		{"", websocket.TextMessage},
		{ProtocolJSON, websocket.TextMessage},
		{ProtocolMsgpack, websocket.BinaryMessage},
	}

	for _, tt := range tests {
		if got := codecFor(tt.protocol).frameType(); got != tt.frame {
			t.Errorf("codecFor(%q).frameType() = %d, want %d", tt.protocol, got, tt.frame)
		}
	}
}
