package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAddressSpaceMetrics() {
	r.AddressSpaceNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uaspace_addressspace_nodes",
			Help: "Number of nodes served per namespace",
		},
		[]string{"namespace"},
	)

	r.AddressSpaceNamespaces = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "uaspace_addressspace_namespaces",
			Help: "Number of bound namespaces",
		},
	)

	r.AddressSpaceFrozen = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "uaspace_addressspace_frozen",
			Help: "Whether the address space has been frozen and published (1=yes, 0=no)",
		},
	)

	r.BackendFaultsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_backend_faults_total",
			Help: "Total number of backend errors or panics caught while aggregating references",
		},
		[]string{"namespace"},
	)

	r.DanglingReferencesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "uaspace_dangling_references_total",
			Help: "Total number of references dropped because the target does not resolve",
		},
		[]string{"namespace"},
	)

	r.ReferencesResolvedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "uaspace_references_resolved_total",
			Help: "Total number of references resolved to a reference description",
		},
	)
}
