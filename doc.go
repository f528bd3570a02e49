// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll server.

livepoll keeps a live tally of votes on event polls. Every accepted vote is
persisted, counted in memory and pushed to everyone watching the poll over
a websocket. Admins watch their event's channel for state changes, and a
global channel announces events going live or offline.

# Starting the Server

The server reads flags, then environment variables, then a .env file:

	DATABASE_URL=file:livepoll.db AUTH_SECRET=... go run .

Or with flags:

	go run . -p 3333 -t postgres -d "postgres://..." -admin alice

# Configuration

Required settings:

  - DATABASE_URL (-d): connection string for the chosen driver
  - AUTH_SECRET (-auth-secret): HS256 secret for bearer tokens

Optional settings:

  - PORT (-p): server port (default: 3333)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - ADMIN_PERSON_ID (-admin): person allowed to run admin commands
  - WS_SEND_BUFFER (-ws-buffer): frames queued per websocket (default: 64)
  - ALLOWED_ORIGINS (-origins): comma separated CORS and websocket origins
  - LOG_FORMAT (-log-format), LOG_LEVEL (-log-level)

On startup every persisted vote is loaded back into the tally, so counts
survive restarts.

# Architecture

  - handlers: HTTP request handlers (votes, results, admin commands)
  - gateway: websocket endpoints for the live channels
  - voting: vote validation, authorization and result publishing
  - ledger: one vote per person per poll, on top of tally
  - tally: lock-free per-option counters
  - pubsub, broadcast: subscriber registries for the three channels
  - store, db: SQL persistence (PostgreSQL or SQLite)
  - router, middleware, auth, cliparse, metrics: HTTP plumbing

See package documentation for each component.
*/
package main
