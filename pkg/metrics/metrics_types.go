package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the server. A nil *Registry is valid and
// records nothing, so components can treat metrics as optional.
type Registry struct {
	// HTTP gateway metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Address space metrics
	AddressSpaceNodes       *prometheus.GaugeVec
	AddressSpaceNamespaces  prometheus.Gauge
	AddressSpaceFrozen      prometheus.Gauge
	BackendFaultsTotal      *prometheus.CounterVec
	DanglingReferencesTotal *prometheus.CounterVec
	ReferencesResolvedTotal prometheus.Counter

	// Browse metrics
	BrowseRequestsTotal      *prometheus.CounterVec
	BrowseDuration           prometheus.Histogram
	BrowseNodesPerRequest    prometheus.Histogram
	BrowseReferencesReturned prometheus.Histogram
	BrowseTruncatedTotal     prometheus.Counter
	UnsupportedServicesTotal *prometheus.CounterVec

	// Model construction metrics
	ModelLoadsTotal      *prometheus.CounterVec
	ModelLoadDuration    *prometheus.HistogramVec
	ModelNodesLoaded     *prometheus.GaugeVec
	ModelElementsSkipped *prometheus.CounterVec
	TypeNodesBuilt       *prometheus.CounterVec

	// Security metrics
	AuthAttemptsTotal *prometheus.CounterVec
	AuthFailuresTotal prometheus.Counter

	// History metrics
	HistoryReadsTotal   *prometheus.CounterVec
	HistoryReadDuration *prometheus.HistogramVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry  *prometheus.Registry
	startedAt time.Time
	mu        sync.RWMutex
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startedAt: time.Now(),
	}

	r.initHTTPMetrics()
	r.initAddressSpaceMetrics()
	r.initBrowseMetrics()
	r.initModelMetrics()
	r.initSecurityMetrics()
	r.initHistoryMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
