// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livepoll"

// Vote outcomes.
const (
	OutcomeRecorded     = "recorded"
	OutcomeSwitched     = "switched"
	OutcomeAlreadyVoted = "already_voted"
	OutcomeNotFound     = "not_found"
	OutcomeDenied       = "denied"
	OutcomeError        = "error"
)

var (
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_cast_total",
		Help:      "Vote requests by outcome.",
	}, []string{"outcome"})

	TallyInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tally_inconsistencies_total",
		Help:      "Vote switches that found the tally out of sync with the ledger.",
	})

	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Live subscriptions by channel namespace.",
	}, []string{"namespace"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Message deliveries by channel namespace and result.",
	}, []string{"namespace", "result"})

	Connections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_connections",
		Help:      "Open websocket connections by channel namespace.",
	}, []string{"namespace"})

	SlowConsumers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "websocket_slow_consumers_total",
		Help:      "Websocket connections closed because their send buffer was full.",
	}, []string{"namespace"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
