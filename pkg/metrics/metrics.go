package metrics

import (
	"strconv"
	"time"
)

func namespaceLabel(ns uint16) string {
	return strconv.FormatUint(uint64(ns), 10)
}

// RecordHTTPRequest records a gateway request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of a gateway response
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	if r == nil {
		return
	}
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a gateway request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	if r == nil {
		return
	}
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a gateway request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	if r == nil {
		return
	}
	r.HTTPRequestsInFlight.Dec()
}

// SetNamespaceNodes records the node count of one namespace
func (r *Registry) SetNamespaceNodes(ns uint16, count int) {
	if r == nil {
		return
	}
	r.AddressSpaceNodes.WithLabelValues(namespaceLabel(ns)).Set(float64(count))
}

// MarkFrozen records that an address space with the given namespace count
// has been published.
func (r *Registry) MarkFrozen(namespaces int) {
	if r == nil {
		return
	}
	r.AddressSpaceNamespaces.Set(float64(namespaces))
	r.AddressSpaceFrozen.Set(1)
}

// RecordBackendFault counts a backend error or panic
func (r *Registry) RecordBackendFault(ns uint16) {
	if r == nil {
		return
	}
	r.BackendFaultsTotal.WithLabelValues(namespaceLabel(ns)).Inc()
}

// RecordDanglingReference counts a reference whose target did not resolve
func (r *Registry) RecordDanglingReference(ns uint16) {
	if r == nil {
		return
	}
	r.DanglingReferencesTotal.WithLabelValues(namespaceLabel(ns)).Inc()
}

// RecordResolvedReferences counts references turned into descriptions
func (r *Registry) RecordResolvedReferences(n int) {
	if r == nil || n == 0 {
		return
	}
	r.ReferencesResolvedTotal.Add(float64(n))
}

// RecordBrowse records one browse request
func (r *Registry) RecordBrowse(status string, duration time.Duration, nodes int) {
	if r == nil {
		return
	}
	r.BrowseRequestsTotal.WithLabelValues(status).Inc()
	r.BrowseDuration.Observe(duration.Seconds())
	r.BrowseNodesPerRequest.Observe(float64(nodes))
}

// RecordBrowseResult records the reference count of one browsed node
func (r *Registry) RecordBrowseResult(references int, truncated bool) {
	if r == nil {
		return
	}
	r.BrowseReferencesReturned.Observe(float64(references))
	if truncated {
		r.BrowseTruncatedTotal.Inc()
	}
}

// RecordUnsupportedService counts a call answered with BadServiceUnsupported
func (r *Registry) RecordUnsupportedService(service string) {
	if r == nil {
		return
	}
	r.UnsupportedServicesTotal.WithLabelValues(service).Inc()
}

// RecordModelLoad records a model document load
func (r *Registry) RecordModelLoad(source, status string, duration time.Duration, nodes int) {
	if r == nil {
		return
	}
	r.ModelLoadsTotal.WithLabelValues(source, status).Inc()
	r.ModelLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
	r.ModelNodesLoaded.WithLabelValues(source).Set(float64(nodes))
}

// RecordSkippedElement counts a model element that was not turned into nodes
func (r *Registry) RecordSkippedElement(reason string) {
	if r == nil {
		return
	}
	r.ModelElementsSkipped.WithLabelValues(reason).Inc()
}

// RecordTypeNodes counts nodes built from one descriptor
func (r *Registry) RecordTypeNodes(descriptor string, n int) {
	if r == nil {
		return
	}
	r.TypeNodesBuilt.WithLabelValues(descriptor).Add(float64(n))
}

// RecordAuth records an authentication attempt
func (r *Registry) RecordAuth(method string, ok bool) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
		r.AuthFailuresTotal.Inc()
	}
	r.AuthAttemptsTotal.WithLabelValues(method, result).Inc()
}

// RecordHistoryRead records a history read
func (r *Registry) RecordHistoryRead(provider, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HistoryReadsTotal.WithLabelValues(provider, status).Inc()
	r.HistoryReadDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
