// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates its schema.

# Drivers

Open accepts "postgres" (github.com/lib/pq) or "sqlite"
(modernc.org/sqlite):

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

Queries are written with ? placeholders; Rebind converts them to $1, $2,
... for PostgreSQL.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - event: voting session, its category and active poll
  - poll: belongs to an event
  - poll_option: choices of a poll, ordered by position
  - app_user: event categories a person may vote on (empty = all)
  - vote: one row per (person, poll)

# Relationships

	event 1──* poll
	poll 1──* poll_option
	poll 1──* vote
	poll_option 1──* vote

All foreign keys use ON DELETE CASCADE, so replacing a poll's options
removes the votes cast on them.
*/
package db
