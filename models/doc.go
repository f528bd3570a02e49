// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain, and live message types.

# Request Types

  - CastVoteRequest: optionId
  - CreatePollRequest: id (optional, replaces an existing poll), title, options
  - UpdateEventRequest: title, active, activePollId (null clears it)

# Response Types

  - CreatePollResponse: pollId
  - MyVoteResponse: optionId
  - ResultsResponse: pollId, results, total
  - EventResponse: event
  - ErrorResponse: error, message

# Domain Types

  - Event: voting session with a category ("type") and an active poll
  - Poll: belongs to an event, carries its options
  - Option: one choice of a poll
  - Vote: one ballot; at most one per (identity, poll)
  - User: identity with the event categories it may vote on

# Live Messages

Results channel:

	{"optionId": "...", "votes": 3}

Admin channel, one Go type per message kind:

	EventUpdated, EventActivated, EventDeactivated,
	PollActivated, PollCreated, PollUpdated

encoded through AdminEnvelope as {"type", "eventId", "data"}.

Global events channel:

	EventListActivated, EventListDeactivated

encoded through GlobalEnvelope as {"type", "data"}.

A type switch over AdminMessage or GlobalMessage is exhaustive: both
interfaces are sealed by an unexported method.
*/
package models
