package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ConnectedSessions prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	QueueLength       *prometheus.GaugeVec
	MatchesTotal      *prometheus.CounterVec
	InvitesTotal      *prometheus.CounterVec
	ResultsDropped    prometheus.Counter
	TickDuration      prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pong_connected_sessions",
			Help: "Number of authenticated sessions currently connected.",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pong_active_rooms",
			Help: "Number of rooms that have not ended yet.",
		}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pong_queue_length",
			Help: "Players waiting in each matchmaking queue.",
		}, []string{"variant"}),
		MatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pong_matches_total",
			Help: "Rooms ended, by outcome.",
		}, []string{"outcome"}),
		InvitesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pong_invites_total",
			Help: "Invite operations, by result.",
		}, []string{"result"}),
		ResultsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pong_results_dropped_total",
			Help: "Match results dropped because the writer buffer was full.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pong_tick_duration_seconds",
			Help:    "Time spent simulating one room tick.",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),
	}
	m.registry.MustRegister(
		m.ConnectedSessions,
		m.ActiveRooms,
		m.QueueLength,
		m.MatchesTotal,
		m.InvitesTotal,
		m.ResultsDropped,
		m.TickDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.ConnectedSessions.Set(float64(n))
	}
}

func (m *Metrics) SetRooms(n int) {
	if m != nil {
		m.ActiveRooms.Set(float64(n))
	}
}

func (m *Metrics) SetQueueLength(v Variant, n int) {
	if m != nil {
		m.QueueLength.WithLabelValues(v.String()).Set(float64(n))
	}
}

func (m *Metrics) MatchEnded(o Outcome) {
	if m != nil {
		m.MatchesTotal.WithLabelValues(string(o)).Inc()
	}
}

// Invite counts an invite operation; result is one of sent, accepted,
// rejected or limited.
func (m *Metrics) Invite(result string) {
	if m != nil {
		m.InvitesTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ResultDropped() {
	if m != nil {
		m.ResultsDropped.Inc()
	}
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m != nil {
		m.TickDuration.Observe(d.Seconds())
	}
}
