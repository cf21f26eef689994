// Package middleware provides the HTTP middleware of the gateway.
//
//   - recovery.go: panic recovery
//   - request_id.go: request id generation and propagation
//   - logging.go: structured request logging
//   - metrics.go: request counters, latency and in-flight gauge
//   - body_limit.go: request body size limit
//   - security_headers.go: response hardening headers
//   - auth.go: Basic and Bearer authentication
//
// All middleware has the form func(http.Handler) http.Handler and is
// chained with Chain:
//
//	handler := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//	)
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws to h so that the first one runs outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
