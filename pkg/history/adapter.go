package history

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/descriptor"
	"github.com/dd0wney/cluso-uaspace/pkg/objects"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// FieldHistory supplies archived values of one field of one object.
type FieldHistory interface {
	FieldValues(ctx context.Context, descriptor, objectID, field string, start, end time.Time) ([]DataValue, error)
}

// Mappings resolves descriptor names, as objects.Backend does.
type Mappings interface {
	Mapping(name string) (*descriptor.NodeMapping, bool)
}

// FieldAdapter is a Provider for descriptor-built variables. It decodes
// `<Descriptor>:<objectID>:<member>` ids and asks a FieldHistory for the
// field behind the member. Variable instances (`<Descriptor>:<objectID>`)
// read their Value field; object instances have no history.
type FieldAdapter struct {
	mappings Mappings
	fields   FieldHistory
}

// NewFieldAdapter creates an adapter over fields.
func NewFieldAdapter(mappings Mappings, fields FieldHistory) *FieldAdapter {
	return &FieldAdapter{mappings: mappings, fields: fields}
}

// ReadRaw implements Provider.
func (a *FieldAdapter) ReadRaw(ctx context.Context, id ua.NodeID, start, end time.Time) ([]DataValue, error) {
	parsed, ok := objects.ParseID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	m, ok := a.mappings.Mapping(parsed.Descriptor)
	if !ok {
		return nil, fmt.Errorf("%w: descriptor %q", ErrUnknownNode, parsed.Descriptor)
	}
	if parsed.Member == "" {
		if m.ValueField == nil {
			return nil, fmt.Errorf("%w: %s is an object instance", ErrUnsupported, id)
		}
		return a.fields.FieldValues(ctx, m.Name, parsed.ObjectID, m.ValueField.Name, start, end)
	}
	rm, ok := m.Member(parsed.Member)
	if !ok {
		return nil, fmt.Errorf("%w: member %q of %s", ErrUnknownNode, parsed.Member, m.Name)
	}
	if rm.IsObjectLink() {
		return nil, fmt.Errorf("%w: %s links to %s objects", ErrUnsupported, id, rm.Target)
	}
	return a.fields.FieldValues(ctx, m.Name, parsed.ObjectID, rm.Field.Name, start, end)
}

// Name implements Provider.
func (a *FieldAdapter) Name() string { return "fields" }

// Router sends each read to the provider registered for the node's
// namespace, or to the fallback. A nil fallback makes unrouted nodes
// unsupported.
type Router struct {
	routes   map[uint16]Provider
	fallback Provider
}

// NewRouter creates a router with the given fallback.
func NewRouter(fallback Provider) *Router {
	return &Router{routes: make(map[uint16]Provider), fallback: fallback}
}

// Route registers p for namespace ns.
func (r *Router) Route(ns uint16, p Provider) *Router {
	r.routes[ns] = p
	return r
}

// ReadRaw implements Provider.
func (r *Router) ReadRaw(ctx context.Context, id ua.NodeID, start, end time.Time) ([]DataValue, error) {
	p, ok := r.routes[id.Namespace()]
	if !ok {
		p = r.fallback
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no provider for ns=%d", ErrUnsupported, id.Namespace())
	}
	return p.ReadRaw(ctx, id, start, end)
}

// Name implements Provider.
func (r *Router) Name() string { return "router" }
