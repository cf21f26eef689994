package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBrowseMetrics() {
	r.BrowseRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_browse_requests_total",
			Help: "Total number of browse requests",
		},
		[]string{"status"},
	)

	r.BrowseDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uaspace_browse_duration_seconds",
			Help:    "Browse request latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	r.BrowseNodesPerRequest = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uaspace_browse_nodes_per_request",
			Help:    "Number of nodes to browse per request",
			Buckets: []float64{1, 2, 5, 10, 50, 100, 500},
		},
	)

	r.BrowseReferencesReturned = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uaspace_browse_references_returned",
			Help:    "Number of references returned per browsed node",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 1000},
		},
	)

	r.BrowseTruncatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "uaspace_browse_truncated_total",
			Help: "Total number of browse results truncated to the requested maximum",
		},
	)

	r.UnsupportedServicesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_unsupported_service_calls_total",
			Help: "Total number of calls to services answered with BadServiceUnsupported",
		},
		[]string{"service"},
	)
}
