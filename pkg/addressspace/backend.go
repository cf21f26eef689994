// Package addressspace aggregates namespace backends into one queryable
// node graph. A Builder collects backends during single-threaded startup
// and Freeze publishes an immutable Space that request goroutines read
// without locking.
package addressspace

import (
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// Backend is a namespace partition of the address space.
//
// Node returns (nil, false) for unknown ids and never an error. References
// returns every reference the backend knows whose source is id, including
// references from nodes owned by other backends (for example HasSubtype
// edges from a standard base type to a type defined here, or inverse
// mirrors of edges pointing into this partition). An unknown id yields an
// empty result; an error means the backend itself failed.
//
// Returned nodes are shared and must not be mutated by callers.
type Backend interface {
	Node(id ua.NodeID) (*ua.Node, bool)
	References(id ua.NodeID) ([]ua.ReferenceNode, error)
}

// Enumerator is implemented by backends that can list the ids they own.
// Freeze uses it to verify that every node lives in its bound namespace.
type Enumerator interface {
	NodeIDs() []ua.NodeID
}

// Lookup resolves node ids. Both the Builder (during construction) and the
// frozen Space satisfy it.
type Lookup interface {
	Node(id ua.NodeID) (*ua.Node, bool)
}

// Reference is a reference together with its source, as produced by the
// construction pipelines before it is attached to a backend.
type Reference struct {
	Source ua.NodeID
	ua.ReferenceNode
}

// NewReference creates a reference from source to a local target.
func NewReference(source, refType ua.NodeID, forward bool, target ua.NodeID) Reference {
	return Reference{
		Source: source,
		ReferenceNode: ua.ReferenceNode{
			ReferenceTypeID: refType,
			IsForward:       forward,
			TargetID:        ua.Expand(target),
		},
	}
}

// Inverse returns the same edge seen from its target. Only meaningful for
// local targets.
func (r Reference) Inverse() Reference {
	return Reference{
		Source: r.TargetID.NodeID,
		ReferenceNode: ua.ReferenceNode{
			ReferenceTypeID: r.ReferenceTypeID,
			IsForward:       !r.IsForward,
			TargetID:        ua.Expand(r.Source),
		},
	}
}

type refKey struct {
	refType ua.NodeID
	forward bool
	target  ua.ExpandedNodeID
}

func keyOf(r ua.ReferenceNode) refKey {
	return refKey{refType: r.ReferenceTypeID, forward: r.IsForward, target: r.TargetID}
}
