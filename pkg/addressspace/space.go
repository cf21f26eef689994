package addressspace

import (
	"context"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// NamespaceInfo describes one bound namespace.
type NamespaceInfo struct {
	Index uint16 `json:"index"`
	URI   string `json:"uri"`
	// Nodes is the number of owned nodes, or -1 when the backend cannot
	// enumerate them.
	Nodes int `json:"nodes"`
}

// Space is the frozen, namespace-indexed registry of backends. All methods
// are safe for concurrent use.
type Space struct {
	logger     logging.Logger
	metrics    *metrics.Registry
	bindings   []binding
	byIndex    map[uint16]Backend
	byURI      map[string]uint16
	namespaces []NamespaceInfo
}

func newSpace(o options, bindings []binding, byURI map[string]uint16, counts map[uint16]int) *Space {
	s := &Space{
		logger:   o.logger,
		metrics:  o.metrics,
		bindings: append([]binding(nil), bindings...),
		byIndex:  make(map[uint16]Backend, len(bindings)),
		byURI:    make(map[string]uint16, len(byURI)),
	}
	for _, b := range bindings {
		s.byIndex[b.index] = b.backend
		s.namespaces = append(s.namespaces, NamespaceInfo{Index: b.index, URI: b.uri, Nodes: counts[b.index]})
	}
	for uri, idx := range byURI {
		s.byURI[uri] = idx
	}
	sort.Slice(s.namespaces, func(i, j int) bool { return s.namespaces[i].Index < s.namespaces[j].Index })
	return s
}

// Node returns the node with the given id from the backend bound to its
// namespace index.
func (s *Space) Node(id ua.NodeID) (*ua.Node, bool) {
	b, ok := s.byIndex[id.Namespace()]
	if !ok {
		return nil, false
	}
	return b.Node(id)
}

// NodeExpanded resolves an expanded id. Ids on other servers never resolve;
// namespace URIs are mapped through the namespace table.
func (s *Space) NodeExpanded(x ua.ExpandedNodeID) (*ua.Node, bool) {
	id, ok := s.Resolve(x)
	if !ok {
		return nil, false
	}
	return s.Node(id)
}

// Resolve converts an expanded id into a local NodeID.
func (s *Space) Resolve(x ua.ExpandedNodeID) (ua.NodeID, bool) {
	if x.ServerIndex != 0 {
		return ua.NodeID{}, false
	}
	if x.NamespaceURI == "" {
		return x.NodeID, true
	}
	idx, ok := s.byURI[x.NamespaceURI]
	if !ok {
		return ua.NodeID{}, false
	}
	return x.NodeID.WithNamespace(idx), true
}

// NamespaceIndex returns the index bound to a URI.
func (s *Space) NamespaceIndex(uri string) (uint16, bool) {
	idx, ok := s.byURI[uri]
	return idx, ok
}

// Namespaces lists the bound namespaces ordered by index.
func (s *Space) Namespaces() []NamespaceInfo {
	out := make([]NamespaceInfo, len(s.namespaces))
	copy(out, s.namespaces)
	return out
}

// References returns the raw references of id aggregated over every
// backend in binding order, deduplicated. Failing backends are logged and
// skipped.
func (s *Space) References(ctx context.Context, id ua.NodeID) ([]ua.ReferenceNode, error) {
	var out []ua.ReferenceNode
	seen := make(map[refKey]struct{})
	for _, b := range s.bindings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refs, err := s.backendReferences(b, id)
		if err != nil {
			s.logger.Error("backend failed while aggregating references",
				logging.Namespace(b.index), logging.NodeID(id), logging.Error(err))
			s.metrics.RecordBackendFault(b.index)
			continue
		}
		for _, ref := range refs {
			k := keyOf(ref)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, ref)
		}
	}
	return out, nil
}

// backendReferences calls a backend, turning a panic into an error.
func (s *Space) backendReferences(b binding, id ua.NodeID) (refs []ua.ReferenceNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError("References").Namespace(b.index).Node(id).
				Wrap(fmt.Errorf("%w: panic: %v", ErrBackendFault, r))
		}
	}()
	refs, err = b.backend.References(id)
	if err != nil {
		return nil, NewError("References").Namespace(b.index).Node(id).
			Wrap(fmt.Errorf("%w: %w", ErrBackendFault, err))
	}
	return refs, nil
}

// BrowseNode returns one description per reference of id whose target
// resolves in this space. References to missing nodes are dropped. A
// failing backend contributes nothing but does not fail the call; the only
// error is a cancelled context.
func (s *Space) BrowseNode(ctx context.Context, id ua.NodeID) ([]ua.ReferenceDescription, error) {
	refs, err := s.References(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]ua.ReferenceDescription, 0, len(refs))
	for _, ref := range refs {
		target, ok := s.NodeExpanded(ref.TargetID)
		if !ok {
			s.logger.Debug("dropping reference to unknown target",
				logging.NodeID(id), logging.Target(ref.TargetID), logging.ReferenceType(ref.ReferenceTypeID))
			s.metrics.RecordDanglingReference(id.Namespace())
			continue
		}
		out = append(out, ua.ReferenceDescription{
			ReferenceTypeID: ref.ReferenceTypeID,
			IsForward:       ref.IsForward,
			NodeID:          ua.Expand(target.ID),
			BrowseName:      target.BrowseName,
			DisplayName:     target.DisplayName,
			NodeClass:       target.Class,
			TypeDefinition:  s.typeDefinition(target),
		})
	}
	s.metrics.RecordResolvedReferences(len(out))
	return out, nil
}

// typeDefinition finds the type of an Object or Variable among its own
// references, then among the references of the backend that owns it.
// Other backends are not consulted, so a faulty foreign backend is hit at
// most once per BrowseNode.
func (s *Space) typeDefinition(n *ua.Node) ua.ExpandedNodeID {
	if n.Class != ua.NodeClassObject && n.Class != ua.NodeClassVariable {
		return ua.ExpandedNodeID{}
	}
	if td, ok := n.TypeDefinition(); ok {
		return td
	}
	owner, ok := s.byIndex[n.ID.Namespace()]
	if !ok {
		return ua.ExpandedNodeID{}
	}
	refs, err := s.backendReferences(binding{index: n.ID.Namespace(), backend: owner}, n.ID)
	if err != nil {
		s.logger.Debug("type definition lookup failed", logging.NodeID(n.ID), logging.Error(err))
		return ua.ExpandedNodeID{}
	}
	for _, ref := range refs {
		if ref.IsForward && ref.ReferenceTypeID == ua.HasTypeDefinition {
			return ref.TargetID
		}
	}
	return ua.ExpandedNodeID{}
}

// Supertypes returns the direct supertypes of a type node, i.e. the
// sources of HasSubtype references pointing at it.
func (s *Space) Supertypes(ctx context.Context, id ua.NodeID) []ua.NodeID {
	refs, err := s.References(ctx, id)
	if err != nil {
		return nil
	}
	var out []ua.NodeID
	for _, ref := range refs {
		if ref.ReferenceTypeID == ua.HasSubtype && !ref.IsForward {
			if parent, ok := s.Resolve(ref.TargetID); ok {
				out = append(out, parent)
			}
		}
	}
	return out
}

// IsSubtype reports whether typ equals ancestor or derives from it through
// a chain of HasSubtype references.
func (s *Space) IsSubtype(ctx context.Context, typ, ancestor ua.NodeID) bool {
	if typ == ancestor {
		return true
	}
	visited := map[ua.NodeID]bool{typ: true}
	queue := []ua.NodeID{typ}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, parent := range s.Supertypes(ctx, current) {
			if parent == ancestor {
				return true
			}
			if !visited[parent] {
				visited[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	return false
}

// Subtypes returns id and every type derived from it, breadth first.
func (s *Space) Subtypes(ctx context.Context, id ua.NodeID) []ua.NodeID {
	out := []ua.NodeID{id}
	visited := map[ua.NodeID]bool{id: true}
	for i := 0; i < len(out); i++ {
		refs, err := s.References(ctx, out[i])
		if err != nil {
			return out
		}
		for _, ref := range refs {
			if ref.ReferenceTypeID != ua.HasSubtype || !ref.IsForward {
				continue
			}
			child, ok := s.Resolve(ref.TargetID)
			if ok && !visited[child] {
				visited[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}
