package browse

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
	"github.com/dd0wney/cluso-uaspace/pkg/validation"
)

// Names of the services answered with BadServiceUnsupported.
const (
	ServiceAddNodes         = "AddNodes"
	ServiceAddReferences    = "AddReferences"
	ServiceDeleteNodes      = "DeleteNodes"
	ServiceDeleteReferences = "DeleteReferences"
	ServiceBrowseNext       = "BrowseNext"
	ServiceRegisterNodes    = "RegisterNodes"
	ServiceUnregisterNodes  = "UnregisterNodes"
	ServiceQueryFirst       = "QueryFirst"
	ServiceQueryNext        = "QueryNext"
)

// AddressSpace is the read side of the frozen address space used by the
// browse service.
type AddressSpace interface {
	TypeHierarchy
	Node(id ua.NodeID) (*ua.Node, bool)
	BrowseNode(ctx context.Context, id ua.NodeID) ([]ua.ReferenceDescription, error)
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

// WithFilters replaces the default filter chain.
func WithFilters(filters ...ReferenceFilter) Option {
	return func(s *Service) { s.filters = filters }
}

// WithMaxNodesPerRequest caps the number of nodes in one request.
func WithMaxNodesPerRequest(n int) Option {
	return func(s *Service) { s.maxNodes = n }
}

// Service implements browsing and rejects the graph mutation services.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	space    AddressSpace
	filters  []ReferenceFilter
	maxNodes int
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewService creates a browse service over space.
func NewService(space AddressSpace, opts ...Option) *Service {
	s := &Service{space: space, maxNodes: validation.MaxNodesPerBrowse}
	for _, opt := range opts {
		opt(s)
	}
	if s.filters == nil {
		s.filters = DefaultFilters(space)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("browse"))
	return s
}

// Browse answers a browse request. Unknown nodes yield a Good result with
// no references. When RequestedMaxReferencesPerNode is positive each
// result holds at most that many references; the rest are dropped and no
// continuation point is issued.
func (s *Service) Browse(ctx context.Context, req *Request) *Response {
	start := time.Now()
	resp := &Response{RequestHandle: req.RequestHandle}

	n := len(req.NodesToBrowse)
	switch {
	case n == 0:
		resp.ServiceResult = ua.StatusBadNothingToDo
	case n > s.maxNodes:
		resp.ServiceResult = ua.StatusBadTooManyOperations
	}
	if resp.ServiceResult.IsBad() {
		s.metrics.RecordBrowse(resp.ServiceResult.String(), time.Since(start), n)
		s.logger.Debug("browse rejected", logging.Count(n), logging.String("status", resp.ServiceResult.String()))
		return resp
	}

	resp.Results = make([]Result, n)
	for i := range req.NodesToBrowse {
		resp.Results[i] = s.browseOne(ctx, &req.NodesToBrowse[i], req.RequestedMaxReferencesPerNode)
	}

	elapsed := time.Since(start)
	s.metrics.RecordBrowse(resp.ServiceResult.String(), elapsed, n)
	s.logger.Debug("browse", logging.Count(n), logging.Latency(elapsed))
	return resp
}

func (s *Service) browseOne(ctx context.Context, d *Description, limit uint32) Result {
	if !s.browsable(d) {
		s.metrics.RecordBrowseResult(0, false)
		return Result{StatusCode: ua.StatusGood, References: []ua.ReferenceDescription{}}
	}

	refs, err := s.space.BrowseNode(ctx, d.NodeID)
	if err != nil {
		s.logger.Warn("browse aborted", logging.NodeID(d.NodeID), logging.Error(err))
		return Result{StatusCode: ua.StatusBadTimeout}
	}
	for _, f := range s.filters {
		refs = f.Filter(ctx, refs, d)
	}
	refs = Project(refs, d.ResultMask)

	truncated := limit > 0 && uint32(len(refs)) > limit
	if truncated {
		refs = refs[:limit]
	}
	s.metrics.RecordBrowseResult(len(refs), truncated)

	if refs == nil {
		refs = []ua.ReferenceDescription{}
	}
	return Result{StatusCode: ua.StatusGood, References: refs}
}

// browsable reports whether d can match anything. A null node, an
// out-of-range direction or a reference type that is not a ReferenceType
// node all select nothing.
func (s *Service) browsable(d *Description) bool {
	if d.NodeID.IsNull() || !d.Direction.Valid() {
		s.logger.Debug("browse selects nothing",
			logging.NodeID(d.NodeID), logging.String("direction", d.Direction.String()))
		return false
	}
	if !d.ReferenceTypeID.IsNull() {
		n, ok := s.space.Node(d.ReferenceTypeID)
		if !ok || n.Class != ua.NodeClassReferenceType {
			s.logger.Debug("browse selects nothing", logging.NodeID(d.NodeID), logging.ReferenceType(d.ReferenceTypeID))
			return false
		}
	}
	return true
}

// TranslateBrowsePaths is not supported; the paths are logged and
// BadQueryTooComplex is returned.
func (s *Service) TranslateBrowsePaths(ctx context.Context, paths []BrowsePath) ua.StatusCode {
	for _, p := range paths {
		for _, el := range p.RelativePath {
			s.logger.Debug("translate browse path element",
				logging.NodeID(p.StartingNode),
				logging.ReferenceType(el.ReferenceTypeID),
				logging.Bool("include_subtypes", el.IncludeSubtypes),
				logging.String("target", el.TargetName.Name))
		}
	}
	s.metrics.RecordUnsupportedService("TranslateBrowsePathsToNodeIds")
	return ua.StatusBadQueryTooComplex
}

// Unsupported answers a service this server does not implement.
func (s *Service) Unsupported(ctx context.Context, service string) ua.StatusCode {
	s.logger.Info("unsupported service requested", logging.Operation(service))
	s.metrics.RecordUnsupportedService(service)
	return ua.StatusBadServiceUnsupported
}

// AddNodes is not supported.
func (s *Service) AddNodes(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceAddNodes)
}

// AddReferences is not supported.
func (s *Service) AddReferences(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceAddReferences)
}

// DeleteNodes is not supported.
func (s *Service) DeleteNodes(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceDeleteNodes)
}

// DeleteReferences is not supported.
func (s *Service) DeleteReferences(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceDeleteReferences)
}

// BrowseNext is not supported; Browse never issues continuation points.
func (s *Service) BrowseNext(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceBrowseNext)
}

// RegisterNodes is not supported.
func (s *Service) RegisterNodes(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceRegisterNodes)
}

// UnregisterNodes is not supported.
func (s *Service) UnregisterNodes(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceUnregisterNodes)
}

// QueryFirst is not supported.
func (s *Service) QueryFirst(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceQueryFirst)
}

// QueryNext is not supported.
func (s *Service) QueryNext(ctx context.Context) ua.StatusCode {
	return s.Unsupported(ctx, ServiceQueryNext)
}
