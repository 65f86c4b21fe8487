package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebSocket metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})

	// Game metrics
	ActiveGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_games_active",
		Help: "The current number of games resident in the registry.",
	})
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_ticks_total",
		Help: "The total number of simulation ticks processed.",
	})
	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_matches_finished_total",
		Help: "The total number of matches that ended, by outcome.",
	}, []string{"outcome"}) // "win", "timeout"
	GamesRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_games_recovered_total",
		Help: "The total number of games rehydrated from the store at startup.",
	})

	// Persistence metrics
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_persist_failures_total",
		Help: "The total number of failed best-effort store writes.",
	})
	PersistDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_persist_dropped_total",
		Help: "The total number of store writes dropped because the queue was full.",
	})
)

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
