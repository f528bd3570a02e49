// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"sync"
	"testing"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/tally"
	"github.com/danielhkuo/livepoll/testutil"
	"github.com/danielhkuo/livepoll/voting"
)

// testEnv wires the full stack on an in-memory database
type testEnv struct {
	db      *sql.DB
	cfg     cliparse.Config
	store   *store.Store
	tally   *tally.Store
	ledger  *ledger.Ledger
	results *broadcast.Results
	admin   *broadcast.Admin
	events  *broadcast.Events

	voting   *VotingHandler
	resultsH *ResultsHandler
	eventsH  *EventHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	s := store.New(conn, db.TypeSQLite)
	tl := tally.New()
	l := ledger.New(tl, s)
	results := broadcast.NewResults(tl)
	admin := broadcast.NewAdmin()
	events := broadcast.NewEvents()
	svc := voting.NewService(s, s, l, results)

	return &testEnv{
		db:       conn,
		cfg:      testutil.GetTestConfig(),
		store:    s,
		tally:    tl,
		ledger:   l,
		results:  results,
		admin:    admin,
		events:   events,
		voting:   NewVotingHandler(svc),
		resultsH: NewResultsHandler(svc),
		eventsH:  NewEventHandler(s, l, results, broadcast.NewAnnouncer(admin, events), testutil.TestAdminID),
	}
}

// asPerson attaches an authenticated person and path values to req
func asPerson(req *http.Request, personID string, path map[string]string) *http.Request {
	for k, v := range path {
		req.SetPathValue(k, v)
	}
	if personID == "" {
		return req
	}
	return req.WithContext(middleware.WithPersonID(req.Context(), personID))
}

// resultsRecorder collects messages published on one poll
type resultsRecorder struct {
	mu   sync.Mutex
	msgs []models.ResultsMessage
}

func (r *resultsRecorder) receive(m models.ResultsMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *resultsRecorder) all() []models.ResultsMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ResultsMessage(nil), r.msgs...)
}
