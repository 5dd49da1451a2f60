package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConnectionMetrics holds Prometheus metrics for subscriber connections.
type ConnectionMetrics struct {
	Active   *prometheus.GaugeVec
	Opened   *prometheus.CounterVec
	Reaped   prometheus.Counter
	Evicted  prometheus.Counter
	Rejected *prometheus.CounterVec
}

// NewConnectionMetrics creates and registers connection metrics on the given registry.
func NewConnectionMetrics(reg prometheus.Registerer) *ConnectionMetrics {
	m := &ConnectionMetrics{
		Active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Number of live connections, by transport.",
		}, []string{"transport"}),
		Opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "opened_total",
			Help:      "Total number of connections opened, by transport.",
		}, []string{"transport"}),
		Reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "reaped_total",
			Help:      "Total number of WebSocket connections reaped by the liveness sweep.",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "evicted_total",
			Help:      "Total number of WebSocket connections disconnected for falling behind.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "rejected_total",
			Help:      "Total number of connection attempts rejected by admission limits, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Active, m.Opened, m.Reaped, m.Evicted, m.Rejected)
	return m
}

// ConnectionOpened records a registration. Safe on a nil receiver.
func (m *ConnectionMetrics) ConnectionOpened(transport string) {
	if m == nil {
		return
	}
	m.Opened.WithLabelValues(transport).Inc()
	m.Active.WithLabelValues(transport).Inc()
}

// ConnectionClosed records a removal. Safe on a nil receiver.
func (m *ConnectionMetrics) ConnectionClosed(transport string) {
	if m == nil {
		return
	}
	m.Active.WithLabelValues(transport).Dec()
}

// ConnectionReaped records a liveness reap. Safe on a nil receiver.
func (m *ConnectionMetrics) ConnectionReaped() {
	if m == nil {
		return
	}
	m.Reaped.Inc()
}

// ConnectionEvicted records a slow peer being disconnected. Safe on a nil receiver.
func (m *ConnectionMetrics) ConnectionEvicted() {
	if m == nil {
		return
	}
	m.Evicted.Inc()
}

// ConnectionRejected records an admission rejection. Safe on a nil receiver.
func (m *ConnectionMetrics) ConnectionRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}
