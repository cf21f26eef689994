// Package browse answers browse requests against a frozen address space.
// Each node to browse runs through a fixed pipeline: aggregate the node's
// references, filter by direction, then by target node class, then by
// reference type, project the requested fields and truncate to the
// per-node limit.
package browse

import (
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// Description selects the references returned for one node.
type Description struct {
	NodeID          ua.NodeID          `json:"nodeId"`
	Direction       ua.BrowseDirection `json:"browseDirection"`
	ReferenceTypeID ua.NodeID          `json:"referenceTypeId"`
	IncludeSubtypes bool               `json:"includeSubtypes"`
	NodeClassMask   ua.NodeClassMask   `json:"nodeClassMask"`
	ResultMask      ua.ResultMask      `json:"resultMask"`
}

// Request is a browse request. RequestedMaxReferencesPerNode of zero means
// no limit.
type Request struct {
	RequestHandle                 uint32        `json:"requestHandle"`
	NodesToBrowse                 []Description `json:"nodesToBrowse"`
	RequestedMaxReferencesPerNode uint32        `json:"requestedMaxReferencesPerNode"`
}

// Result is the outcome for one Description.
type Result struct {
	StatusCode ua.StatusCode             `json:"statusCode"`
	References []ua.ReferenceDescription `json:"references"`
}

// Response carries one Result per requested node, in request order.
// ServiceResult is bad when the request as a whole was rejected, in which
// case Results is empty.
type Response struct {
	RequestHandle uint32        `json:"requestHandle"`
	ServiceResult ua.StatusCode `json:"serviceResult"`
	Results       []Result      `json:"results"`
}

// RelativePathElement is one hop of a browse path.
type RelativePathElement struct {
	ReferenceTypeID ua.NodeID        `json:"referenceTypeId"`
	IsInverse       bool             `json:"isInverse"`
	IncludeSubtypes bool             `json:"includeSubtypes"`
	TargetName      ua.QualifiedName `json:"targetName"`
}

// BrowsePath is a starting node and the hops to follow from it.
type BrowsePath struct {
	StartingNode ua.NodeID             `json:"startingNode"`
	RelativePath []RelativePathElement `json:"relativePath"`
}
