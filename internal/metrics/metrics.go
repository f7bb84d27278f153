// Package metrics owns the Prometheus registry of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors updated by the reservation path, the
// cache and the realtime gateway.  A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	sideEffectFails *prometheus.CounterVec
	busReceived     prometheus.Counter
	sessions        prometheus.Gauge
}

// New builds a private registry with process and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubtables",
			Name:      "table_transitions_total",
			Help:      "Reserve and cancel attempts by outcome.",
		}, []string{"op", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubtables",
			Name:      "cache_lookups_total",
			Help:      "Table list cache lookups by result.",
		}, []string{"result"}),
		sideEffectFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubtables",
			Name:      "side_effect_failures_total",
			Help:      "Cache invalidations and bus publishes that failed after a committed write.",
		}, []string{"kind"}),
		busReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clubtables",
			Name:      "bus_messages_received_total",
			Help:      "Table updates received from the notification bus.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clubtables",
			Name:      "realtime_sessions",
			Help:      "Connected realtime sessions on this instance.",
		}),
	}
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.transitions, m.cacheLookups, m.sideEffectFails, m.busReceived, m.sessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Transition counts a reserve/cancel outcome.
func (m *Metrics) Transition(op, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, outcome).Inc()
}

// CacheLookup counts a hit, miss or error.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SideEffectFailed counts a failed invalidation or publish.
func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFails.WithLabelValues(kind).Inc()
}

// BusReceived counts a message taken off the bus.
func (m *Metrics) BusReceived() {
	if m == nil {
		return
	}
	m.busReceived.Inc()
}

// SessionOpened and SessionClosed track the realtime session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
