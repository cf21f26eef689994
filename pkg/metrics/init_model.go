package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initModelMetrics() {
	r.ModelLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_model_loads_total",
			Help: "Total number of model documents loaded",
		},
		[]string{"source", "status"},
	)

	r.ModelLoadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uaspace_model_load_duration_seconds",
			Help:    "Model document load latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	r.ModelNodesLoaded = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uaspace_model_nodes_loaded",
			Help: "Number of nodes produced by the last load of a model document",
		},
		[]string{"source"},
	)

	r.ModelElementsSkipped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_model_elements_skipped_total",
			Help: "Total number of model elements skipped during parsing",
		},
		[]string{"reason"},
	)

	r.TypeNodesBuilt = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_type_nodes_built_total",
			Help: "Total number of type and instance-declaration nodes built from descriptors",
		},
		[]string{"descriptor"},
	)
}
