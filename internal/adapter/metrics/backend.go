package metrics

import "github.com/prometheus/client_golang/prometheus"

// BackendMetrics holds Prometheus metrics for calls to the REST backend.
type BackendMetrics struct {
	RequestDuration *prometheus.HistogramVec
	SessionClears   prometheus.Counter
	BreakerState    prometheus.Gauge
	BreakerChanges  *prometheus.CounterVec
}

// NewBackendMetrics creates and registers backend gateway metrics on the given registry.
func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests in seconds, by method and status class.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "status_class"}),
		SessionClears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "session_clears_total",
			Help:      "Total number of sessions cleared because the backend answered 401.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "circuit_breaker_state",
			Help:      "Backend circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of backend circuit breaker transitions, by target state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.RequestDuration, m.SessionClears, m.BreakerState, m.BreakerChanges)
	return m
}

// StatusMetrics holds Prometheus metrics for the server status poller.
type StatusMetrics struct {
	Polls         *prometheus.CounterVec
	PollDuration  prometheus.Histogram
	PlayersOnline prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// NewStatusMetrics creates and registers status poller metrics on the given registry.
func NewStatusMetrics(reg prometheus.Registerer) *StatusMetrics {
	m := &StatusMetrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "polls_total",
			Help:      "Total number of server status polls, by result.",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "poll_duration_seconds",
			Help:      "Duration of server status polls in seconds, retries included.",
			Buckets:   prometheus.DefBuckets,
		}),
		PlayersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "players_online",
			Help:      "Total players online across all servers at the last successful poll.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful status poll.",
		}),
	}

	reg.MustRegister(m.Polls, m.PollDuration, m.PlayersOnline, m.LastSuccess)
	return m
}
