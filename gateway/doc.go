// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package gateway serves the live channels over websockets.

# Endpoints

	GET /polls/{pollId}/results           → PollResults
	GET /admin/events/{eventId}/updates   → AdminUpdates
	GET /events/updates                   → EventUpdates

Each connection holds exactly one subscription, taken after the upgrade and
released when the connection ends for any reason. A malformed id answers
400 and an unknown poll 404, both before the upgrade.

A results connection first receives one frame per option with its current
count, then one frame per change:

	{"optionId": "…", "votes": 3}

Admin and global frames carry a type tag:

	{"type": "poll_created", "eventId": "…", "data": {…}}
	{"type": "event_activated", "data": {…}}

# Encoding

Frames are JSON text by default. A client that asks for the "msgpack"
subprotocol gets the same fields as MessagePack binary frames.

# Back-pressure

Publishers never wait on a socket. Every connection has a bounded queue
drained by its own writer; when the queue is full the connection is closed
with a policy-violation frame and counted as a slow consumer.
*/
package gateway
