package graphql

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
)

// Request is a GraphQL HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response is a GraphQL HTTP response body.
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

type Error struct {
	Message string `json:"message"`
}

// Handler serves POST /graphql.
type Handler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) HandlerOption {
	return func(h *Handler) { h.maxDepth = n }
}

func WithLogger(l logging.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a handler for schema.
func NewHandler(schema graphql.Schema, opts ...HandlerOption) *Handler {
	h := &Handler{schema: schema, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrDefault(h.logger).With(logging.Component("graphql"))
	return h
}

// Execute runs one request. The depth check happens before execution.
func (h *Handler) Execute(r *http.Request, req *Request) *graphql.Result {
	if err := ValidateQueryDepth(req.Query, h.maxDepth); err != nil {
		return &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)}}
	}
	return graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result := h.Execute(r, &req)
	resp := Response{Data: result.Data}
	for _, err := range result.Errors {
		resp.Errors = append(resp.Errors, Error{Message: err.Message})
	}
	h.logger.Debug("query executed",
		logging.String("operation", req.OperationName),
		logging.Int("errors", len(resp.Errors)),
		logging.Latency(time.Since(start)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
