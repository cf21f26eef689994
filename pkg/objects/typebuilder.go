// Package objects exposes runtime domain objects as an address space
// namespace. Each descriptor yields a type node with one instance
// declaration per member; each object yields an instance node whose
// member values are read live from a Source.
package objects

import (
	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/descriptor"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// TypeNodes is the output of TypeBuilder.Build.
type TypeNodes struct {
	Type         *ua.Node
	Declarations []*ua.Node
	// Members holds one edge from the type to each declaration, in
	// declaration order.
	Members []addressspace.Reference
	// Subtype is the HasSubtype edge from the parent type, nil when the
	// parent could not be resolved.
	Subtype *addressspace.Reference
}

// Nodes returns the type node followed by its declarations.
func (t TypeNodes) Nodes() []*ua.Node {
	out := make([]*ua.Node, 0, len(t.Declarations)+1)
	out = append(out, t.Type)
	return append(out, t.Declarations...)
}

// Install stores the nodes and edges in m.
func (t TypeNodes) Install(m *addressspace.MemoryBackend) error {
	if err := m.AddNodes(t.Nodes()...); err != nil {
		return err
	}
	m.AddReferences(t.Members...)
	if t.Subtype != nil {
		m.AddReference(*t.Subtype)
	}
	return nil
}

// TypeName returns the type node name for a descriptor.
func TypeName(name string) string {
	return name + "Type"
}

// TypeID returns the type node id for a descriptor in namespace ns.
func TypeID(ns uint16, name string) ua.NodeID {
	return ua.NewStringNodeID(ns, TypeName(name))
}

// DeclarationID returns the id of a type's instance declaration.
func DeclarationID(ns uint16, name, browseName string) ua.NodeID {
	return ua.NewStringNodeID(ns, TypeName(name)+":"+browseName)
}

// TypeBuilder turns node mappings into type nodes.
type TypeBuilder struct {
	ns      uint16
	lookup  addressspace.Lookup
	locale  string
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewTypeBuilder creates a builder for namespace ns. Parent types are
// resolved through lookup.
func NewTypeBuilder(ns uint16, lookup addressspace.Lookup, opts ...Option) *TypeBuilder {
	o := newOptions(opts)
	return &TypeBuilder{
		ns:      ns,
		lookup:  lookup,
		locale:  o.locale,
		logger:  o.logger.With(logging.Component("typebuilder"), logging.Namespace(ns)),
		metrics: o.metrics,
	}
}

// Build produces the type node for m, one instance declaration per member
// and the edges linking them. It is deterministic: the same mapping always
// yields the same nodes.
func (b *TypeBuilder) Build(m *descriptor.NodeMapping) TypeNodes {
	name := TypeName(m.Name)
	typeID := TypeID(b.ns, m.Name)

	typeNode := &ua.Node{
		ID:          typeID,
		Class:       ua.NodeClassObjectType,
		BrowseName:  ua.NewQualifiedName(b.ns, name),
		DisplayName: ua.NewLocalizedText(b.locale, name),
		Description: ua.NewLocalizedText(b.locale, m.Description),
	}
	if m.NodeClass == ua.NodeClassVariable {
		typeNode.Class = ua.NodeClassVariableType
		typeNode.Variable = &ua.VariableAttributes{
			DataType:  m.ValueField.DataType,
			ValueRank: m.ValueField.ValueRank,
		}
	}

	out := TypeNodes{Type: typeNode}
	for _, rm := range m.References {
		decl := b.declaration(m.Name, rm)
		out.Declarations = append(out.Declarations, decl)
		out.Members = append(out.Members, addressspace.NewReference(typeID, rm.ReferenceType, true, decl.ID))
	}

	if _, ok := b.lookup.Node(m.ParentType); ok {
		ref := addressspace.NewReference(m.ParentType, ua.HasSubtype, true, typeID)
		out.Subtype = &ref
	} else {
		b.logger.Warn("parent type not found, HasSubtype omitted",
			logging.SymbolicName(name), logging.NodeID(m.ParentType))
	}

	b.metrics.RecordTypeNodes(m.Name, len(out.Declarations)+1)
	b.logger.Debug("type built", logging.NodeID(typeID), logging.Count(len(out.Declarations)))
	return out
}

func (b *TypeBuilder) declaration(owner string, rm descriptor.ReferenceMapping) *ua.Node {
	id := DeclarationID(b.ns, owner, rm.BrowseName)
	n := &ua.Node{
		ID:          id,
		Class:       rm.NodeClass,
		BrowseName:  ua.NewQualifiedName(b.ns, rm.BrowseName),
		DisplayName: ua.NewLocalizedText(b.locale, rm.DisplayName),
		Description: ua.NewLocalizedText(b.locale, rm.Description),
	}
	if rm.NodeClass == ua.NodeClassVariable {
		n.Variable = &ua.VariableAttributes{
			DataType:        rm.DataType,
			ValueRank:       rm.ValueRank,
			AccessLevel:     ua.AccessLevelCurrentRead | ua.AccessLevelHistoryRead,
			UserAccessLevel: ua.AccessLevelCurrentRead | ua.AccessLevelHistoryRead,
		}
	}
	n.AddReference(ua.HasTypeDefinition, true, ua.Expand(rm.TypeDefinition))
	return n
}
