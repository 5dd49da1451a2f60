package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks short-lived HTTP requests.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	InFlightGauge   prometheus.Gauge

	skipPrefixes []string
}

// NewHTTPMetrics creates and registers HTTP metrics. Requests whose route
// starts with one of skipPrefixes are not recorded.
func NewHTTPMetrics(reg prometheus.Registerer, skipPrefixes ...string) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status_code"}),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being processed.",
		}),
		skipPrefixes: skipPrefixes,
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.InFlightGauge)
	return m
}

func (m *HTTPMetrics) skipped(route string) bool {
	for _, p := range m.skipPrefixes {
		if strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

// Middleware records duration and status per route.
// Must run inside the error-handling middleware so handler errors are already rendered.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if m == nil || m.skipped(route) {
				return next(c)
			}

			m.InFlightGauge.Inc()
			defer m.InFlightGauge.Dec()

			var status string
			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				m.RequestDuration.WithLabelValues(c.Request().Method, route, status).Observe(v)
				m.RequestsTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			}))

			err := next(c)
			status = responseStatus(c, err)
			timer.ObserveDuration()
			return err
		}
	}
}

// responseStatus prefers the status of an unrendered echo error over the
// default 200 of an uncommitted response.
func responseStatus(c echo.Context, err error) string {
	var httpErr *echo.HTTPError
	if err != nil && !c.Response().Committed && errors.As(err, &httpErr) {
		return strconv.Itoa(httpErr.Code)
	}
	if err != nil && !c.Response().Committed {
		return strconv.Itoa(http.StatusInternalServerError)
	}
	return strconv.Itoa(c.Response().Status)
}
