// Package metrics exposes the server's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "websweeper",
		Name:      "rooms_live",
		Help:      "Number of rooms currently registered.",
	})

	PlayersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "websweeper",
		Name:      "players_live",
		Help:      "Number of registered players across all rooms.",
	})

	MovesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "websweeper",
		Name:      "moves_applied_total",
		Help:      "Reveal/flag moves applied by game loops.",
	})

	BoardSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "websweeper",
		Name:      "board_snapshots_total",
		Help:      "Compressed board snapshots broadcast to rooms.",
	})

	CursorBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "websweeper",
		Name:      "cursor_broadcasts_total",
		Help:      "Coalesced cursor updates broadcast to rooms.",
	})
)
