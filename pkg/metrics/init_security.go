package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSecurityMetrics() {
	r.AuthAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	r.AuthFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "uaspace_auth_failures_total",
			Help: "Total number of authentication failures",
		},
	)
}

func (r *Registry) initHistoryMetrics() {
	r.HistoryReadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_history_reads_total",
			Help: "Total number of history read operations",
		},
		[]string{"provider", "status"},
	)

	r.HistoryReadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uaspace_history_read_duration_seconds",
			Help:    "History read latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
}
