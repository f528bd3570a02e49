// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pubsub provides a keyed, in-process publish/subscribe hub.

	hub := pubsub.New[string, models.ResultsMessage]("results")
	h := hub.Subscribe(pollID, func(m models.ResultsMessage) error {
		return send(m)
	})
	defer hub.Unsubscribe(h)

	hub.Publish(pollID, models.ResultsMessage{OptionID: "A", Votes: 1})

Publish is synchronous and makes exactly one delivery attempt per
subscriber. There is no queue and no replay: a subscriber registered after
a Publish never sees that message.
*/
package pubsub
