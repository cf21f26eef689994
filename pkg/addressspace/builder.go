package addressspace

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// Factory constructs a backend once its namespace index is known. The
// lookup sees every backend bound before this one, which lets type
// builders resolve parent types during construction.
type Factory func(ns uint16, lookup Lookup) (Backend, error)

// Option configures a Builder.
type Option func(*options)

type options struct {
	logger  logging.Logger
	metrics *metrics.Registry
}

// WithLogger sets the logger used by the builder and the frozen space.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics registry used by the frozen space.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

type binding struct {
	index   uint16
	uri     string
	backend Backend
}

// Builder accumulates namespace bindings during startup. It is not safe
// for concurrent use.
type Builder struct {
	opts     options
	bindings []binding
	byIndex  map[uint16]int
	byURI    map[string]uint16
	frozen   bool
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDefault(o.logger).With(logging.Component("addressspace"))
	return &Builder{
		opts:    o,
		byIndex: make(map[uint16]int),
		byURI:   make(map[string]uint16),
	}
}

// Bind attaches a backend at an explicit namespace index. It is used for
// the reserved indices 0 and 1; binding an index twice is an error.
func (b *Builder) Bind(index uint16, uri string, backend Backend) error {
	if b.frozen {
		return NewError("Bind").Namespace(index).Wrap(ErrFrozen)
	}
	if backend == nil {
		return NewError("Bind").Namespace(index).Wrap(ErrNilBackend)
	}
	if _, used := b.byIndex[index]; used {
		return NewError("Bind").Namespace(index).Wrap(ErrNamespaceInUse)
	}
	if uri != "" {
		if other, used := b.byURI[uri]; used {
			return NewError("Bind").Namespace(index).Context("uri %s bound at ns=%d", uri, other).Wrap(ErrNamespaceURIInUse)
		}
		b.byURI[uri] = index
	}

	b.byIndex[index] = len(b.bindings)
	b.bindings = append(b.bindings, binding{index: index, uri: uri, backend: backend})
	b.opts.logger.Info("namespace bound", logging.Namespace(index), logging.String("uri", uri))
	return nil
}

// NextIndex returns the index Register would assign next.
func (b *Builder) NextIndex() uint16 {
	next := ua.FirstUserNamespace
	for idx := range b.byIndex {
		if idx >= next {
			next = idx + 1
		}
	}
	return next
}

// Register assigns the next free namespace index (starting at 2), builds
// the backend through factory and binds it.
func (b *Builder) Register(uri string, factory Factory) (uint16, error) {
	if b.frozen {
		return 0, NewError("Register").Context("uri %s", uri).Wrap(ErrFrozen)
	}
	if _, used := b.byURI[uri]; uri != "" && used {
		return 0, NewError("Register").Context("uri %s", uri).Wrap(ErrNamespaceURIInUse)
	}
	index := b.NextIndex()
	backend, err := factory(index, b)
	if err != nil {
		return 0, NewError("Register").Namespace(index).Context("uri %s", uri).Wrap(err)
	}
	if err := b.Bind(index, uri, backend); err != nil {
		return 0, err
	}
	return index, nil
}

// Node resolves an id against the backends bound so far.
func (b *Builder) Node(id ua.NodeID) (*ua.Node, bool) {
	i, ok := b.byIndex[id.Namespace()]
	if !ok {
		return nil, false
	}
	return b.bindings[i].backend.Node(id)
}

// Freeze validates the bindings and publishes an immutable Space. A
// partition violation is reported as an error and must abort startup.
// The builder cannot be used afterwards.
func (b *Builder) Freeze() (*Space, error) {
	if b.frozen {
		return nil, NewError("Freeze").Wrap(ErrFrozen)
	}
	timer := logging.StartTimer(b.opts.logger, "address space frozen")

	counts := make(map[uint16]int, len(b.bindings))
	for _, bind := range b.bindings {
		enum, ok := bind.backend.(Enumerator)
		if !ok {
			counts[bind.index] = -1
			continue
		}
		ids := enum.NodeIDs()
		for _, id := range ids {
			if id.Namespace() != bind.index {
				err := NewError("Freeze").Namespace(bind.index).Node(id).
					Context("node belongs to ns=%d", id.Namespace()).Wrap(ErrPartitionViolation)
				timer.EndError(err)
				return nil, err
			}
		}
		counts[bind.index] = len(ids)
	}

	b.frozen = true
	s := newSpace(b.opts, b.bindings, b.byURI, counts)
	for ns, n := range counts {
		if n >= 0 {
			b.opts.metrics.SetNamespaceNodes(ns, n)
		}
	}
	b.opts.metrics.MarkFrozen(len(b.bindings))
	timer.EndInfo(logging.Count(len(b.bindings)))
	return s, nil
}

func sortedIndices(m map[uint16]int) []uint16 {
	out := make([]uint16, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String summarises the bindings, mainly for debugging.
func (b *Builder) String() string {
	return fmt.Sprintf("Builder{namespaces=%v frozen=%v}", sortedIndices(b.byIndex), b.frozen)
}
