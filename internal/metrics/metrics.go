// Package metrics exposes Prometheus instruments for pollers, actions and
// the websocket hub.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll results
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// Metrics holds the instruments on a private registry
type Metrics struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	actions      *prometheus.CounterVec
	wsClients    prometheus.Gauge
}

// New registers all instruments on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegisdash",
			Name:      "polls_total",
			Help:      "Backend poll outcomes by endpoint.",
		}, []string{"endpoint", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aegisdash",
			Name:      "poll_duration_seconds",
			Help:      "Backend fetch latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegisdash",
			Name:      "actions_total",
			Help:      "Block and unblock outcomes.",
		}, []string{"action", "result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aegisdash",
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
	}

	reg.MustRegister(
		m.polls,
		m.pollDuration,
		m.actions,
		m.wsClients,
		collectors.NewGoCollector(),
	)

	return m
}

// ObservePoll records one fetch outcome. A nil receiver is a no-op so
// components can run without metrics.
func (m *Metrics) ObservePoll(endpoint, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(endpoint, result).Inc()
	if result != ResultStale {
		m.pollDuration.WithLabelValues(endpoint).Observe(took.Seconds())
	}
}

// ObserveAction records a block/unblock outcome
func (m *Metrics) ObserveAction(action, result string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, result).Inc()
}

// WSConnected adjusts the websocket client gauge by delta
func (m *Metrics) WSConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
