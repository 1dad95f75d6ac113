// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sessionMetrics struct {
	roomsCreated prometheus.Counter
	votes        prometheus.Counter
	completions  *prometheus.CounterVec
}

func (c *Coordinator) initMetrics(promRegistry prometheus.Registerer) {
	factory := promauto.With(promRegistry)
	c.metrics = &sessionMetrics{
		roomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "roompick_rooms_created_total",
			Help: "rooms created",
		}),
		votes: factory.NewCounter(prometheus.CounterOpts{
			Name: "roompick_votes_total",
			Help: "votes recorded",
		}),
		completions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roompick_rooms_completed_total",
			Help: "rooms moved to completed, by what triggered it",
		}, []string{"trigger"}),
	}
}
