// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the livepoll API.

# Handler Types

  - VotingHandler: cast a vote, read your own vote
  - ResultsHandler: poll results snapshot, poll with results
  - EventHandler: event reads and the admin mutations

Handlers are created via constructor functions that take the services they
call:

	svc := voting.NewService(store, store, ledger, results)
	votingHandler := handlers.NewVotingHandler(svc)

# Voting

All voting routes need a bearer token (middleware.Authenticate):

	POST /api/events/{eventId}/polls/{pollId}/votes   → CastVote (201)
	GET  /api/events/{eventId}/polls/{pollId}/my-vote → MyVote (200 or 204)

CastVote answers 400 for a repeated vote on the same option or a malformed
id, 403 when the voter may not vote on the event's category, and 404 for an
unknown poll or option. A vote for a different option replaces the old one.

# Results

	GET /api/polls/{pollId}/results            → GetResults
	GET /api/events/{eventId}/polls/{pollId}   → GetPoll

Results list every option of the poll, including those with no votes.

# Events

	GET /api/events                   → ListEvents
	GET /api/events/{eventId}         → GetEvent
	GET /api/events/{eventId}/polls   → ListPolls

ListEvents shows the admin every event and other users the events of their
allowed categories (all of them when the list is empty); a token for an
unregistered person gets 404. GetEvent and ListPolls answer 403 for a user
outside the event's category. ListPolls scores each option from the live
tally.

# Admin

Admin routes also need middleware.RequireAdmin:

	POST  /api/events                  → CreateEvent (201)
	PATCH /api/events/{eventId}        → UpdateEvent
	POST  /api/events/{eventId}/polls  → CreatePoll

UpdateEvent announces on the event's admin channel: event_activated or
event_deactivated when "active" is set (also sent to the global channel),
otherwise poll_activated when "activePollId" is present, otherwise
event_updated. CreatePoll announces poll_created; with an "id" in the body
it replaces that poll's options, drops its votes and announces
poll_updated.
*/
package handlers
