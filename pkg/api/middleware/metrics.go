package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder receives the per request measurements. *metrics.Registry
// implements it.
type MetricsRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	RecordResponseSize(method, path string, size float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()
}

// Metrics records every request. route maps a request to the path label
// so that node ids in URLs do not blow up label cardinality; nil uses the
// raw path.
func Metrics(recorder MetricsRecorder, route func(*http.Request) string) Middleware {
	if route == nil {
		route = func(r *http.Request) string { return r.URL.Path }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			recorder.IncHTTPRequestsInFlight()
			defer recorder.DecHTTPRequestsInFlight()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			path := route(r)
			recorder.RecordHTTPRequest(r.Method, path, strconv.Itoa(sw.status), time.Since(start))
			recorder.RecordResponseSize(r.Method, path, float64(sw.bytes))
		})
	}
}
