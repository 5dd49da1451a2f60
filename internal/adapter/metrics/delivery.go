package metrics

import "github.com/prometheus/client_golang/prometheus"

// Delivery results.
const (
	ResultDelivered     = "delivered"
	ResultDroppedOutage = "dropped_outage"
	ResultDroppedLoss   = "dropped_loss"
	ResultFailed        = "failed"
	ResultStale         = "stale"
)

// DeliveryMetrics holds Prometheus metrics for the tick fan-out.
type DeliveryMetrics struct {
	Attempts *prometheus.CounterVec
	Delay    *prometheus.HistogramVec
}

// NewDeliveryMetrics creates and registers delivery metrics on the given registry.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	m := &DeliveryMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total number of delivery attempts, by transport and result.",
		}, []string{"transport", "result"}),
		Delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "injected_delay_seconds",
			Help:      "Injected delay applied to passed deliveries, in seconds.",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"transport"}),
	}

	reg.MustRegister(m.Attempts, m.Delay)
	return m
}

// Observe records one attempt. Safe on a nil receiver.
func (m *DeliveryMetrics) Observe(transport, result string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(transport, result).Inc()
}

// ObserveDelay records the delay chosen for a passed delivery. Safe on a nil receiver.
func (m *DeliveryMetrics) ObserveDelay(transport string, seconds float64) {
	if m == nil {
		return
	}
	m.Delay.WithLabelValues(transport).Observe(seconds)
}
