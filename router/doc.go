// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter returns the full handler, CORS included, built from the
process-wide services in Deps:

	mux := router.NewRouter(router.Deps{Config: cfg, Store: s, ...})

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Voting (bearer token):

	POST /api/events/{eventId}/polls/{pollId}/votes
	GET  /api/events/{eventId}/polls/{pollId}/my-vote

Results and metadata (bearer token):

	GET /api/polls/{pollId}/results
	GET /api/events/{eventId}/polls/{pollId}
	GET /api/events
	GET /api/events/{eventId}
	GET /api/events/{eventId}/polls

Admin commands (bearer token of the configured admin):

	POST  /api/events
	PATCH /api/events/{eventId}
	POST  /api/events/{eventId}/polls

Live channels (websocket, no token):

	GET /polls/{pollId}/results
	GET /admin/events/{eventId}/updates
	GET /events/updates
*/
package router
