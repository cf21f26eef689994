package history

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
	"github.com/dd0wney/cluso-uaspace/pkg/validation"
)

// NodeLookup finds nodes in the address space.
type NodeLookup interface {
	Node(id ua.NodeID) (*ua.Node, bool)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// Service validates history reads against the address space and delegates
// them to a Provider.
type Service struct {
	nodes    NodeLookup
	provider Provider
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewService creates a history service. A nil provider rejects every read
// with BadHistoryOperationUnsupported.
func NewService(nodes NodeLookup, provider Provider, opts ...Option) *Service {
	s := &Service{nodes: nodes, provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("history"))
	return s
}

// Read answers a raw history read.
func (s *Service) Read(ctx context.Context, req *ReadRequest) *ReadResponse {
	resp := &ReadResponse{}
	n := len(req.NodesToRead)
	switch {
	case s.provider == nil:
		resp.ServiceResult = ua.StatusBadHistoryOperationUnsupported
	case n == 0:
		resp.ServiceResult = ua.StatusBadNothingToDo
	case n > validation.MaxNodesPerBrowse:
		resp.ServiceResult = ua.StatusBadTooManyOperations
	case req.EndTime.Before(req.StartTime):
		resp.ServiceResult = ua.StatusBadInvalidArgument
	}
	if resp.ServiceResult.IsBad() {
		s.logger.Debug("history read rejected", logging.Count(n), logging.String("status", resp.ServiceResult.String()))
		return resp
	}

	resp.Results = make([]ReadResult, n)
	for i, id := range req.NodesToRead {
		resp.Results[i] = s.readOne(ctx, id, req)
	}
	return resp
}

func (s *Service) readOne(ctx context.Context, id ua.NodeID, req *ReadRequest) ReadResult {
	node, ok := s.nodes.Node(id)
	if !ok {
		return ReadResult{StatusCode: ua.StatusBadNodeIDUnknown}
	}
	if node.Variable == nil || !node.Variable.AccessLevel.Has(ua.AccessLevelHistoryRead) {
		return ReadResult{StatusCode: ua.StatusBadHistoryOperationUnsupported}
	}

	start := time.Now()
	values, err := s.provider.ReadRaw(ctx, id, req.StartTime, req.EndTime)
	status := statusOf(err)
	s.metrics.RecordHistoryRead(s.provider.Name(), status.String(), time.Since(start))
	if err != nil {
		level := s.logger.Debug
		if status == ua.StatusBadInternalError {
			level = s.logger.Error
		}
		level("history read failed", logging.NodeID(id), logging.String("provider", s.provider.Name()), logging.Error(err))
		return ReadResult{StatusCode: status}
	}

	if req.NumValuesPerNode > 0 && uint32(len(values)) > req.NumValuesPerNode {
		values = values[:req.NumValuesPerNode]
	}
	if values == nil {
		values = []DataValue{}
	}
	return ReadResult{StatusCode: ua.StatusGood, Values: values}
}

func statusOf(err error) ua.StatusCode {
	switch {
	case err == nil:
		return ua.StatusGood
	case errors.Is(err, ErrUnsupported):
		return ua.StatusBadHistoryOperationUnsupported
	case errors.Is(err, ErrUnknownNode):
		return ua.StatusBadNodeIDUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ua.StatusBadTimeout
	default:
		return ua.StatusBadInternalError
	}
}
