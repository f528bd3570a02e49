// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger records who voted for what: at most one option per
(identity, poll).

# Casting

	out, err := l.CastVote(ctx, personID, pollID, optionID)

  - no previous vote: the vote is recorded and the option's count goes up
  - same option again: ErrAlreadyVoted, nothing changes
  - different option: the old vote is removed, its count goes down, the
    new vote is recorded and its count goes up

The four steps of a switch run under the (identity, poll) lock, so two
concurrent switches by one voter cannot interleave. Voters with different
identities never share a lock.

out.Affected() lists the options whose counts changed, old option first,
for the caller to publish.

ForgetPoll and ReplacePoll take the whole poll: they wait for casts in
progress on it and hold back new ones until the poll's votes are gone.

# Persistence

A Journal receives every change before it is applied in memory. Load
rebuilds the ledger and the tally from persisted votes at startup.

# Faults

ErrInconsistent means the tally did not hold a vote the ledger knew about.
It is logged and returned; it indicates a bug, not a user error.
*/
package ledger
