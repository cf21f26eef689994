package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process gauges are sampled on scrape by UpdateSystemMetrics rather than
// kept current.
func (r *Registry) initSystemMetrics() {
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&r.UptimeSeconds, "uptime_seconds", "Seconds since the address space server started"},
		{&r.GoRoutines, "goroutines", "Goroutines serving browse, history and the gateway"},
		{&r.MemoryAllocBytes, "memory_alloc_bytes", "Heap bytes held, dominated by the frozen node graph"},
		{&r.MemorySysBytes, "memory_sys_bytes", "Bytes obtained from the OS"},
	}
	for _, g := range gauges {
		*g.dst = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
			Namespace: "uaspace",
			Name:      g.name,
			Help:      g.help,
		})
	}
}

// UpdateSystemMetrics samples uptime, goroutine count and memory. The
// gateway calls it before each /metrics scrape.
func (r *Registry) UpdateSystemMetrics() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(r.startedAt).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}
