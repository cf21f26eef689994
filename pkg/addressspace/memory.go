package addressspace

import (
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// MemoryBackend is an in-memory Backend. Both construction pipelines fill
// one during startup; it is read-only once the space is frozen.
type MemoryBackend struct {
	nodes map[ua.NodeID]*ua.Node
	order []ua.NodeID
	// extra holds references not owned by a local node: edges whose source
	// lives in another namespace, and inverse mirrors of local edges.
	extra map[ua.NodeID][]ua.ReferenceNode
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nodes: make(map[ua.NodeID]*ua.Node),
		extra: make(map[ua.NodeID][]ua.ReferenceNode),
	}
}

// AddNode stores a node together with the references it owns. The backend
// takes ownership of n.
func (m *MemoryBackend) AddNode(n *ua.Node) error {
	if _, exists := m.nodes[n.ID]; exists {
		return NewError("AddNode").Namespace(n.ID.Namespace()).Node(n.ID).Wrap(ErrDuplicateNode)
	}
	m.nodes[n.ID] = n
	m.order = append(m.order, n.ID)
	for _, ref := range n.References {
		m.mirror(Reference{Source: n.ID, ReferenceNode: ref})
	}
	return nil
}

// AddNodes stores several nodes, stopping at the first error.
func (m *MemoryBackend) AddNodes(nodes ...*ua.Node) error {
	for _, n := range nodes {
		if err := m.AddNode(n); err != nil {
			return err
		}
	}
	return nil
}

// AddReference records an edge. If the source is a local node the edge
// becomes one of its owned references, otherwise it is indexed under the
// foreign source id. Local targets get an inverse mirror.
func (m *MemoryBackend) AddReference(r Reference) {
	if n, ok := m.nodes[r.Source]; ok {
		n.References = append(n.References, r.ReferenceNode)
	} else {
		m.extra[r.Source] = append(m.extra[r.Source], r.ReferenceNode)
	}
	m.mirror(r)
}

// AddReferences records several edges.
func (m *MemoryBackend) AddReferences(refs ...Reference) {
	for _, r := range refs {
		m.AddReference(r)
	}
}

func (m *MemoryBackend) mirror(r Reference) {
	if !r.TargetID.IsLocal() {
		return
	}
	inv := r.Inverse()
	m.extra[inv.Source] = append(m.extra[inv.Source], inv.ReferenceNode)
}

// Node implements Backend.
func (m *MemoryBackend) Node(id ua.NodeID) (*ua.Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// References implements Backend. Owned references come first, then
// foreign and mirrored ones; duplicates are dropped.
func (m *MemoryBackend) References(id ua.NodeID) ([]ua.ReferenceNode, error) {
	var owned []ua.ReferenceNode
	if n, ok := m.nodes[id]; ok {
		owned = n.References
	}
	extra := m.extra[id]
	if len(owned)+len(extra) == 0 {
		return nil, nil
	}

	out := make([]ua.ReferenceNode, 0, len(owned)+len(extra))
	seen := make(map[refKey]struct{}, len(owned)+len(extra))
	for _, list := range [][]ua.ReferenceNode{owned, extra} {
		for _, ref := range list {
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

// NodeIDs implements Enumerator, in insertion order.
func (m *MemoryBackend) NodeIDs() []ua.NodeID {
	out := make([]ua.NodeID, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of stored nodes.
func (m *MemoryBackend) Len() int {
	return len(m.nodes)
}
