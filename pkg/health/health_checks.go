package health

import (
	"context"
	"runtime"
)

// SpaceState reports whether the address space is frozen and how large
// it is.
type SpaceState func() (frozen bool, namespaces, nodes int)

// AddressSpaceCheck is unhealthy until the address space has been frozen
// and published.
func AddressSpaceCheck(state SpaceState) CheckFunc {
	return func(context.Context) Check {
		frozen, namespaces, nodes := state()
		check := Check{
			Name:    "addressspace",
			Details: map[string]any{"namespaces": namespaces, "nodes": nodes},
		}
		if !frozen {
			check.Status = StatusUnhealthy
			check.Message = "Address space not built yet"
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Address space frozen"
		return check
	}
}

// DatabaseCheck reports the connectivity of the history database. A
// failing database degrades the server but leaves browsing available.
func DatabaseCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "database"}
		if err := ping(ctx); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Connected"
		return check
	}
}

// MemoryCheck reports heap usage relative to memory obtained from the OS.
func MemoryCheck() CheckFunc {
	return func(context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": m.HeapAlloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
		}
		if m.Sys > 0 && float64(m.HeapAlloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Memory usage normal"
		return check
	}
}
