package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's prometheus instruments. Each server instance
// gets its own registry so multiple servers (tests) never fight over global
// collector registration.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions       prometheus.Gauge
	sessionsCreated      prometheus.Counter
	sessionsDisconnected prometheus.Counter
	connectionsRejected  prometheus.Counter

	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec

	authFailures      prometheus.Counter
	broadcastFailures prometheus.Counter
}

// NewMetrics creates a metrics set backed by a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dispute_active_sessions",
			Help: "Number of currently connected sessions",
		}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispute_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		sessionsDisconnected: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispute_sessions_disconnected_total",
			Help: "Total number of sessions disconnected",
		}),
		connectionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispute_connections_rejected_total",
			Help: "Connections refused because the session table was full",
		}),
		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispute_messages_received_total",
			Help: "Protocol messages received, by type",
		}, []string{"type"}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispute_messages_sent_total",
			Help: "Protocol messages sent, by type",
		}, []string{"type"}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispute_auth_failures_total",
			Help: "Failed authentication attempts",
		}),
		broadcastFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispute_broadcast_send_failures_total",
			Help: "Per-recipient send failures during broadcasts",
		}),
	}
}

// Registry returns the backing registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

func (m *Metrics) RecordSessionDisconnected() {
	m.sessionsDisconnected.Inc()
}

func (m *Metrics) RecordConnectionRejected() {
	m.connectionsRejected.Inc()
}

func (m *Metrics) RecordMessageReceived(msgType string) {
	m.messagesReceived.WithLabelValues(msgType).Inc()
}

func (m *Metrics) RecordMessageSent(msgType string) {
	m.messagesSent.WithLabelValues(msgType).Inc()
}

func (m *Metrics) RecordAuthFailure() {
	m.authFailures.Inc()
}

func (m *Metrics) RecordBroadcastFailure() {
	m.broadcastFailures.Inc()
}
