// Package metrics exposes prometheus counters for guard activity
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by the guard. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	events          *prometheus.CounterVec
	reactions       *prometheus.CounterVec
	snapshotEntries *prometheus.GaugeVec
	sessionsActive  prometheus.Gauge
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filegirl_events_total",
			Help: "Total number of file system events received per protected directory",
		}, []string{"dir", "kind"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filegirl_reactions_total",
			Help: "Total number of reactions fired against unauthorized changes",
		}, []string{"dir", "action", "outcome"}),
		snapshotEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "filegirl_snapshot_entries",
			Help: "Number of entries in the integrity snapshot of a protected directory",
		}, []string{"dir"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filegirl_sessions_active",
			Help: "Number of watch sessions currently running",
		}),
	}

	m.registry.MustRegister(m.events, m.reactions, m.snapshotEntries, m.sessionsActive)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvent counts an incoming event
func (m *Metrics) ObserveEvent(dir, kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(dir, kind).Inc()
}

// ObserveReaction counts a fired reaction
func (m *Metrics) ObserveReaction(dir, action, outcome string) {
	if m == nil {
		return
	}
	m.reactions.WithLabelValues(dir, action, outcome).Inc()
}

// SetSnapshotEntries records the size of a directory's snapshot
func (m *Metrics) SetSnapshotEntries(dir string, n int) {
	if m == nil {
		return
	}
	m.snapshotEntries.WithLabelValues(dir).Set(float64(n))
}

// SessionStarted increments the active session gauge
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionStopped decrements the active session gauge
func (m *Metrics) SessionStopped() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
