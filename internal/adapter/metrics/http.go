package metrics

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests echo could not route, so scanners probing
// random paths do not blow up label cardinality.
const unmatchedRoute = "unmatched"

// HTTPMetrics tracks portal page and form traffic.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	Redirects       *prometheus.CounterVec
	InFlightGauge   prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time to render a page or handle a form, by route.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status_class"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Handled requests, by route and status class.",
		}, []string{"method", "route", "status_class"}),
		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "redirects_total",
			Help:      "Post/redirect/get and login redirects, by originating route.",
		}, []string{"route"}),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being handled.",
		}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.Redirects, m.InFlightGauge)
	return m
}

func untracked(route string) bool {
	switch {
	case route == "/metrics", route == "/ws/status":
		return true
	case strings.HasPrefix(route, "/health/"), strings.HasPrefix(route, "/static/"):
		return true
	}
	return false
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Middleware records request metrics. Probes, static assets and the
// long-lived websocket route are skipped.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if untracked(route) {
				return next(c)
			}
			if route == "" || route == "/*" {
				route = unmatchedRoute
			}

			m.InFlightGauge.Inc()
			defer m.InFlightGauge.Dec()

			method := c.Request().Method
			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				code := c.Response().Status
				class := statusClass(code)
				m.RequestDuration.WithLabelValues(method, route, class).Observe(v)
				m.RequestsTotal.WithLabelValues(method, route, class).Inc()
				if code == http.StatusSeeOther || code == http.StatusFound {
					m.Redirects.WithLabelValues(route).Inc()
				}
			}))
			defer timer.ObserveDuration()

			return next(c)
		}
	}
}
