// Package metrics exposes relay counters in Prometheus format.
//
// All methods are nil-safe so components can run without metrics in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

type Metrics struct {
	reg *prometheus.Registry

	connections    prometheus.Gauge
	onlineUsers    prometheus.Gauge
	messages       *prometheus.CounterVec
	presenceEvents *prometheus.CounterVec
	outboxDropped  prometheus.Counter
	sinkDropped    prometheus.Counter
	sinkErrors     prometheus.Counter
}

// New builds a metrics set on its own registry, so several instances can
// coexist in one process.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live transport sessions, joined or not.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Sessions currently bound to a display name.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Routing attempts by outcome.",
		}, []string{"outcome"}),
		presenceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_events_total",
			Help:      "Presence events emitted, per recipient connection.",
		}, []string{"event"}),
		outboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dropped_total",
			Help:      "Frames that could not be queued on a connection outbox.",
		}),
		sinkDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_dropped_total",
			Help:      "Persistence records dropped because the queue was full.",
		}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Persistence writes that failed.",
		}),
	}
	m.reg.MustRegister(
		m.connections,
		m.onlineUsers,
		m.messages,
		m.presenceEvents,
		m.outboxDropped,
		m.sinkDropped,
		m.sinkErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) SetOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(n))
}

func (m *Metrics) Message(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Presence(event string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.presenceEvents.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) OutboxDropped() {
	if m == nil {
		return
	}
	m.outboxDropped.Inc()
}

func (m *Metrics) SinkDropped() {
	if m == nil {
		return
	}
	m.sinkDropped.Inc()
}

func (m *Metrics) SinkError() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}
