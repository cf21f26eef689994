// Package api is the HTTP gateway in front of the address space. It maps
// the browse, history and unsupported node management services onto JSON
// endpoints and serves health, metrics and GraphQL next to them.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-uaspace/pkg/api/middleware"
	"github.com/dd0wney/cluso-uaspace/pkg/bootstrap"
	"github.com/dd0wney/cluso-uaspace/pkg/browse"
	"github.com/dd0wney/cluso-uaspace/pkg/graphql"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Server routes gateway requests to the runtime's services.
type Server struct {
	rt      *bootstrap.Runtime
	logger  logging.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer builds the routes and middleware chain for rt. The GraphQL
// endpoint is only mounted when the configuration enables it.
func NewServer(rt *bootstrap.Runtime) (*Server, error) {
	s := &Server{
		rt:     rt,
		logger: rt.Logger().With(logging.Component("api")),
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", rt.Health().HTTPHandler())
	s.mux.HandleFunc("GET /health/ready", rt.Health().ReadinessHandler())
	s.mux.HandleFunc("GET /health/live", rt.Health().LivenessHandler())
	s.mux.Handle("GET /metrics", s.metricsHandler())

	s.mux.HandleFunc("GET /v1/namespaces", s.withServices(s.handleNamespaces))
	s.mux.HandleFunc("GET /v1/nodes/{nodeId}", s.withServices(s.handleNode))
	s.mux.HandleFunc("GET /v1/nodes/{nodeId}/references", s.withServices(s.handleNodeReferences))
	s.mux.HandleFunc("POST /v1/browse", s.withServices(s.handleBrowse))
	s.mux.HandleFunc("POST /v1/translate", s.withServices(s.handleTranslate))
	s.mux.HandleFunc("POST /v1/history", s.withServices(s.handleHistory))
	s.mux.HandleFunc("GET /v1/whoami", s.handleWhoAmI)

	s.mux.HandleFunc("POST /v1/browse/next", s.withServices(s.unsupported((*browse.Service).BrowseNext)))
	s.mux.HandleFunc("POST /v1/nodes", s.withServices(s.unsupported((*browse.Service).AddNodes)))
	s.mux.HandleFunc("DELETE /v1/nodes/{nodeId}", s.withServices(s.unsupported((*browse.Service).DeleteNodes)))
	s.mux.HandleFunc("POST /v1/references", s.withServices(s.unsupported((*browse.Service).AddReferences)))
	s.mux.HandleFunc("DELETE /v1/references", s.withServices(s.unsupported((*browse.Service).DeleteReferences)))
	s.mux.HandleFunc("POST /v1/register", s.withServices(s.unsupported((*browse.Service).RegisterNodes)))
	s.mux.HandleFunc("POST /v1/unregister", s.withServices(s.unsupported((*browse.Service).UnregisterNodes)))
	s.mux.HandleFunc("POST /v1/query", s.withServices(s.unsupported((*browse.Service).QueryFirst)))
	s.mux.HandleFunc("POST /v1/query/next", s.withServices(s.unsupported((*browse.Service).QueryNext)))

	if rt.Tokens() != nil {
		s.mux.HandleFunc("POST /v1/token", s.handleToken)
	}
	if rt.Config().Server.GraphQL {
		schema, err := graphql.NewSchema(rt.Services)
		if err != nil {
			return nil, err
		}
		s.mux.Handle("POST /graphql", graphql.NewHandler(schema, graphql.WithLogger(rt.Logger())))
	}

	s.handler = middleware.Chain(s.mux,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(rt.Logger()),
		middleware.Metrics(rt.Metrics(), s.route),
		middleware.SecurityHeaders(),
		middleware.BodySizeLimit(MaxBodyBytes),
		middleware.Authenticate(rt.Authenticator(), rt.Logger(), public),
	)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// route returns the matched pattern for the metrics path label.
func (s *Server) route(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

// metricsHandler refreshes the runtime gauges before every scrape.
func (s *Server) metricsHandler() http.Handler {
	reg := s.rt.Metrics()
	h := promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.UpdateSystemMetrics()
		h.ServeHTTP(w, r)
	})
}

// public reports requests that skip authentication.
func public(r *http.Request) bool {
	return r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/health")
}

// ErrorResponse is the body of every non-2xx gateway answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// decodeJSON reads the request body into v and answers 400 or 413 itself
// when that fails.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
	return false
}
