package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player or per-match labels).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.0167},
	})

	activeMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_active_matches",
		Help: "Currently running matches",
	})

	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_queue_length",
		Help: "Players waiting in the matchmaking queue",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	tournamentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tournaments_created_total",
		Help: "Tournaments created over the process lifetime",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin"
)

// ObserveTickDuration records one simulation tick. Wired into every
// match through the lobby's tick observer.
func ObserveTickDuration(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// RecordConnectionRejected counts a rejected connection by reason.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// sampleGauges refreshes the lobby gauges. Called periodically from the
// server's sampling loop rather than on every lobby mutation.
func (s *Server) sampleGauges() {
	activeMatches.Set(float64(s.lobby.ActiveMatches()))
	queueLength.Set(float64(s.lobby.QueueLen()))
}
