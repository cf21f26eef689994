package modelfile

import (
	"strconv"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/nodeids"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// ParsedElement holds the nodes and references produced by one element
// and its children. The element's own node is always Nodes[0].
type ParsedElement struct {
	Nodes      []*ua.Node
	References []addressspace.Reference
}

func (pe *ParsedElement) merge(other ParsedElement) {
	pe.Nodes = append(pe.Nodes, other.Nodes...)
	pe.References = append(pe.References, other.References...)
}

func (pe *ParsedElement) ref(source, refType ua.NodeID, forward bool, target ua.NodeID) {
	pe.References = append(pe.References, addressspace.NewReference(source, refType, forward, target))
}

// elementParser turns one element into nodes. It reports false when the
// element was skipped.
type elementParser func(p *parser, e *element, ids nodeids.Resolver) (ParsedElement, bool)

var elementParsers map[string]elementParser

func init() {
	elementParsers = map[string]elementParser{
		"Object":        (*parser).parseObject,
		"ObjectType":    (*parser).parseObjectType,
		"Variable":      (*parser).parseVariable,
		"VariableType":  (*parser).parseVariableType,
		"Property":      (*parser).parseProperty,
		"ReferenceType": (*parser).parseReferenceType,
	}
}

// childReferenceType is the edge from a parent to a child element.
func childReferenceType(name string) (ua.NodeID, bool) {
	switch name {
	case "Property":
		return ua.HasProperty, true
	case "Object", "Variable":
		return ua.HasComponent, true
	}
	return ua.NodeID{}, false
}

type parser struct {
	locale  string
	logger  logging.Logger
	metrics *metrics.Registry
}

func (p *parser) parse(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	fn, ok := elementParsers[e.name()]
	if !ok || !inVocabulary(e.XMLName) {
		p.logger.Debug("unsupported element skipped", logging.Element(e.name()))
		p.metrics.RecordSkippedElement("unsupported_element")
		return ParsedElement{}, false
	}
	return fn(p, e, ids)
}

func (p *parser) resolve(ids nodeids.Resolver, raw string) (ua.NodeID, bool) {
	name := stripPrefix(raw)
	if name == "" {
		return ua.NodeID{}, false
	}
	return ids.Lookup(name)
}

// newNode resolves the element's own id from its SymbolicName and fills
// the naming attributes. BrowseName falls back to the SymbolicName.
func (p *parser) newNode(e *element, ids nodeids.Resolver, class ua.NodeClass) (*ua.Node, bool) {
	sym := e.attr("SymbolicName")
	id, ok := p.resolve(ids, sym)
	if !ok {
		p.logger.Debug("no node id for element, skipped", logging.Element(e.name()), logging.SymbolicName(sym))
		p.metrics.RecordSkippedElement("unresolved_id")
		return nil, false
	}

	browseName := stripPrefix(e.childText("BrowseName"))
	if browseName == "" {
		browseName = sym
	}
	n := &ua.Node{
		ID:          id,
		Class:       class,
		BrowseName:  ua.NewQualifiedName(id.Namespace(), browseName),
		DisplayName: ua.NewLocalizedText(p.locale, browseName),
	}
	if desc := e.childText("Description"); desc != "" {
		n.Description = ua.NewLocalizedText(p.locale, desc)
	}
	return n, true
}

// typeDefinition emits HasTypeDefinition only when the TypeDefinition
// attribute is present.
func (p *parser) typeDefinition(e *element, n *ua.Node, ids nodeids.Resolver, pe *ParsedElement) {
	raw := e.attr("TypeDefinition")
	if raw == "" {
		return
	}
	target, ok := p.resolve(ids, raw)
	if !ok {
		p.unresolved("TypeDefinition", raw, n)
		return
	}
	pe.ref(n.ID, ua.HasTypeDefinition, true, target)
}

// baseType emits HasSubtype from the BaseType attribute to the node.
func (p *parser) baseType(e *element, n *ua.Node, ids nodeids.Resolver, pe *ParsedElement) {
	raw := e.attr("BaseType")
	if raw == "" {
		return
	}
	base, ok := p.resolve(ids, raw)
	if !ok {
		p.unresolved("BaseType", raw, n)
		return
	}
	pe.ref(base, ua.HasSubtype, true, n.ID)
}

// references reads the References child. Inverse references keep the
// node as source with IsForward false.
func (p *parser) references(e *element, n *ua.Node, ids nodeids.Resolver, pe *ParsedElement) {
	refs := e.child("References")
	if refs == nil {
		return
	}
	for i := range refs.Children {
		r := &refs.Children[i]
		if r.name() != "Reference" || !inVocabulary(r.XMLName) {
			continue
		}
		refTypeName := r.childText("ReferenceType")
		refType, ok := p.resolve(ids, refTypeName)
		if !ok {
			p.unresolved("ReferenceType", refTypeName, n)
			continue
		}
		targetName := r.childText("TargetId")
		target, ok := p.resolve(ids, targetName)
		if !ok {
			p.unresolved("TargetId", targetName, n)
			continue
		}
		pe.ref(n.ID, refType, !parseBool(r.attr("IsInverse")), target)
	}
}

// children parses the Children element. Child ids are looked up with the
// parent's SymbolicName and an underscore prepended, falling back to the
// bare name.
func (p *parser) children(e *element, n *ua.Node, ids nodeids.Resolver, pe *ParsedElement) {
	children := e.child("Children")
	if children == nil {
		return
	}
	prefixed := nodeids.Prefixed(e.attr("SymbolicName")+"_", ids)
	for i := range children.Children {
		c := &children.Children[i]
		parsed, ok := p.parse(c, prefixed)
		if !ok || len(parsed.Nodes) == 0 {
			continue
		}
		pe.merge(parsed)
		if refType, ok := childReferenceType(c.name()); ok {
			pe.ref(n.ID, refType, true, parsed.Nodes[0].ID)
		}
	}
}

func (p *parser) variableAttributes(e *element, n *ua.Node, ids nodeids.Resolver) *ua.VariableAttributes {
	dataType := ua.DataTypeBaseDataType
	if raw := e.attr("DataType"); raw != "" {
		if id, ok := p.resolve(ids, raw); ok {
			dataType = id
		} else {
			p.unresolved("DataType", raw, n)
		}
	}
	access := parseAccessLevel(e.attr("AccessLevel"))
	return &ua.VariableAttributes{
		DataType:        dataType,
		ValueRank:       parseValueRank(e.attr("ValueRank")),
		AccessLevel:     access,
		UserAccessLevel: access,
		Historizing:     parseBool(e.attr("Historizing")),
	}
}

func (p *parser) unresolved(what, name string, n *ua.Node) {
	p.logger.Warn("unresolved name, reference omitted",
		logging.String("attribute", what), logging.SymbolicName(name), logging.NodeID(n.ID))
	p.metrics.RecordSkippedElement("unresolved_reference")
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseValueRank(s string) int32 {
	switch s {
	case "", "Scalar":
		return ua.ValueRankScalar
	case "Array", "OneDimension":
		return ua.ValueRankOneDimension
	case "ScalarOrArray", "Any":
		return ua.ValueRankAny
	case "OneOrMoreDimensions":
		return ua.ValueRankOneOrMoreDimensions
	case "ScalarOrOneDimension":
		return ua.ValueRankScalarOrOneDimension
	}
	if v, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(v)
	}
	return ua.ValueRankScalar
}

func parseAccessLevel(s string) ua.AccessLevel {
	switch s {
	case "Write":
		return ua.AccessLevelCurrentWrite
	case "ReadWrite":
		return ua.AccessLevelCurrentRead | ua.AccessLevelCurrentWrite
	case "HistoryRead":
		return ua.AccessLevelCurrentRead | ua.AccessLevelHistoryRead
	case "HistoryReadWrite":
		return ua.AccessLevelCurrentRead | ua.AccessLevelCurrentWrite | ua.AccessLevelHistoryRead | ua.AccessLevelHistoryWrite
	default:
		return ua.AccessLevelCurrentRead
	}
}
