// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/gateway"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/voting"
)

// Deps are the process-wide services the routes call into. They are built
// once in main.
type Deps struct {
	Config    cliparse.Config
	Store     *store.Store
	Ledger    *ledger.Ledger
	Results   *broadcast.Results
	Announcer *broadcast.Announcer
	Voting    *voting.Service
	Gateway   *gateway.Gateway
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	cfg := d.Config

	// Initialize handlers
	votingHandler := handlers.NewVotingHandler(d.Voting)
	resultsHandler := handlers.NewResultsHandler(d.Voting)
	eventHandler := handlers.NewEventHandler(d.Store, d.Ledger, d.Results, d.Announcer, cfg.AdminPersonID)

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.Authenticate(cfg.AuthSecret, h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireAdmin(cfg.AdminPersonID, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Voting
	mux.HandleFunc("POST /api/events/{eventId}/polls/{pollId}/votes", authed(votingHandler.CastVote))
	mux.HandleFunc("GET /api/events/{eventId}/polls/{pollId}/my-vote", authed(votingHandler.MyVote))

	// Results and metadata
	mux.HandleFunc("GET /api/polls/{pollId}/results", authed(resultsHandler.GetResults))
	mux.HandleFunc("GET /api/events/{eventId}/polls/{pollId}", authed(resultsHandler.GetPoll))
	mux.HandleFunc("GET /api/events", authed(eventHandler.ListEvents))
	mux.HandleFunc("GET /api/events/{eventId}", authed(eventHandler.GetEvent))
	mux.HandleFunc("GET /api/events/{eventId}/polls", authed(eventHandler.ListPolls))

	// Admin commands
	mux.HandleFunc("POST /api/events", admin(eventHandler.CreateEvent))
	mux.HandleFunc("PATCH /api/events/{eventId}", admin(eventHandler.UpdateEvent))
	mux.HandleFunc("POST /api/events/{eventId}/polls", admin(eventHandler.CreatePoll))

	// Live channels
	mux.HandleFunc("GET /polls/{pollId}/results", middleware.WithLogging(d.Gateway.PollResults))
	mux.HandleFunc("GET /admin/events/{eventId}/updates", middleware.WithLogging(d.Gateway.AdminUpdates))
	mux.HandleFunc("GET /events/updates", middleware.WithLogging(d.Gateway.EventUpdates))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return middleware.CORS(cfg.AllowedOrigins, mux)
}
