package modelfile

import (
	"github.com/dd0wney/cluso-uaspace/pkg/nodeids"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

func (p *parser) parseObject(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	n, ok := p.newNode(e, ids, ua.NodeClassObject)
	if !ok {
		return ParsedElement{}, false
	}
	pe := ParsedElement{Nodes: []*ua.Node{n}}
	p.typeDefinition(e, n, ids, &pe)
	p.references(e, n, ids, &pe)
	p.children(e, n, ids, &pe)
	return pe, true
}

func (p *parser) parseObjectType(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	n, ok := p.newNode(e, ids, ua.NodeClassObjectType)
	if !ok {
		return ParsedElement{}, false
	}
	n.IsAbstract = isAbstract(e)
	pe := ParsedElement{Nodes: []*ua.Node{n}}
	p.baseType(e, n, ids, &pe)
	p.references(e, n, ids, &pe)
	p.children(e, n, ids, &pe)
	return pe, true
}

func (p *parser) parseVariableType(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	n, ok := p.newNode(e, ids, ua.NodeClassVariableType)
	if !ok {
		return ParsedElement{}, false
	}
	n.IsAbstract = isAbstract(e)
	n.Variable = p.variableAttributes(e, n, ids)
	pe := ParsedElement{Nodes: []*ua.Node{n}}
	p.baseType(e, n, ids, &pe)
	p.references(e, n, ids, &pe)
	p.children(e, n, ids, &pe)
	return pe, true
}

func (p *parser) parseVariable(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	return p.variableLike(e, ids)
}

func (p *parser) parseProperty(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	return p.variableLike(e, ids)
}

func (p *parser) variableLike(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	n, ok := p.newNode(e, ids, ua.NodeClassVariable)
	if !ok {
		return ParsedElement{}, false
	}
	n.Variable = p.variableAttributes(e, n, ids)
	pe := ParsedElement{Nodes: []*ua.Node{n}}
	p.typeDefinition(e, n, ids, &pe)
	p.references(e, n, ids, &pe)
	p.children(e, n, ids, &pe)
	return pe, true
}

func (p *parser) parseReferenceType(e *element, ids nodeids.Resolver) (ParsedElement, bool) {
	n, ok := p.newNode(e, ids, ua.NodeClassReferenceType)
	if !ok {
		return ParsedElement{}, false
	}
	n.IsAbstract = isAbstract(e)
	n.Symmetric = parseBool(e.attr("Symmetric"))
	if inverse := e.childText("InverseName"); inverse != "" {
		n.InverseName = ua.NewLocalizedText(p.locale, inverse)
	}
	pe := ParsedElement{Nodes: []*ua.Node{n}}
	p.baseType(e, n, ids, &pe)
	p.references(e, n, ids, &pe)
	return pe, true
}

// isAbstract accepts both spellings found in model design documents.
func isAbstract(e *element) bool {
	return parseBool(e.attr("IsAbstract")) || parseBool(e.attr("isAbstract"))
}
