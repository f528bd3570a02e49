// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting exposes the participant operations: cast a vote, read your
own vote, read a poll's results.

	svc := voting.NewService(store, store, l, results)
	out, err := svc.CastInEvent(ctx, personID, eventID, pollID, optionID)

Cast checks, in order: the poll exists (and belongs to eventID when given),
the option belongs to the poll, and the Authorizer allows the identity to
vote on the poll's event category. It then hands the vote to the ledger and
publishes the new count of the old and new option on the results channel.

Errors:

  - ErrNotFound: unknown poll, option, or poll outside the event
  - ErrAccessDenied: the Authorizer said no
  - ledger.ErrAlreadyVoted: same option as the current vote
  - ledger.ErrInconsistent: the switch was applied but the tally had drifted
*/
package voting
