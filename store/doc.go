// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the SQL side of livepoll: event and poll metadata, voting
permissions, and the vote journal.

	s := store.New(conn, cfg.DatabaseType)
	p, err := s.GetPoll(ctx, pollID)      // options in display order
	ok, err := s.CanVote(ctx, personID, p.Category)

# Votes

RecordVote satisfies ledger.Journal. A switch deletes the previous row and
inserts the new one in a single transaction; if the previous row is missing
the transaction is rolled back and ErrNotFound returned. LoadVotes returns
every row so the ledger can be rebuilt on startup.

# Permissions

A user with an empty category list may vote in every event. Otherwise the
poll's event category must be listed. Unknown users may not vote.

All lookups of missing rows return errors wrapping ErrNotFound.
*/
package store
