package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mission_control"

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	RequestDurationSeconds *prometheus.HistogramVec
	LaunchesScheduled      prometheus.Counter
	LaunchesAborted        prometheus.Counter
	LaunchesSeeded         prometheus.Counter
}

// New creates the collectors and registers them with r.
func New(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      `The time it takes to serve an API request, by method, route and status code.`,
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		LaunchesScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launches",
			Name:      "scheduled_total",
			Help:      `The number of launches scheduled through the API.`,
		}),
		LaunchesAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launches",
			Name:      "aborted_total",
			Help:      `The number of launches aborted through the API.`,
		}),
		LaunchesSeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launches",
			Name:      "seeded_total",
			Help:      `The number of launches upserted from the launch data provider.`,
		}),
	}
	r.MustRegister(
		m.RequestDurationSeconds,
		m.LaunchesScheduled,
		m.LaunchesAborted,
		m.LaunchesSeeded,
	)
	return m
}
