package browse

import (
	"context"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// ReferenceFilter removes references that do not match a Description.
// Filters return a new slice and leave refs untouched.
type ReferenceFilter interface {
	Filter(ctx context.Context, refs []ua.ReferenceDescription, d *Description) []ua.ReferenceDescription
}

// FilterFunc adapts a function to ReferenceFilter.
type FilterFunc func(ctx context.Context, refs []ua.ReferenceDescription, d *Description) []ua.ReferenceDescription

// Filter implements ReferenceFilter.
func (f FilterFunc) Filter(ctx context.Context, refs []ua.ReferenceDescription, d *Description) []ua.ReferenceDescription {
	return f(ctx, refs, d)
}

func keep(refs []ua.ReferenceDescription, pred func(*ua.ReferenceDescription) bool) []ua.ReferenceDescription {
	out := make([]ua.ReferenceDescription, 0, len(refs))
	for i := range refs {
		if pred(&refs[i]) {
			out = append(out, refs[i])
		}
	}
	return out
}

// DirectionFilter keeps references whose direction matches the request.
var DirectionFilter = FilterFunc(func(_ context.Context, refs []ua.ReferenceDescription, d *Description) []ua.ReferenceDescription {
	if d.Direction == ua.BrowseDirectionBoth {
		return refs
	}
	return keep(refs, func(r *ua.ReferenceDescription) bool { return d.Direction.Matches(r.IsForward) })
})

// NodeClassFilter keeps references whose target class is in the mask.
var NodeClassFilter = FilterFunc(func(_ context.Context, refs []ua.ReferenceDescription, d *Description) []ua.ReferenceDescription {
	if d.NodeClassMask == 0 {
		return refs
	}
	return keep(refs, func(r *ua.ReferenceDescription) bool { return d.NodeClassMask.Includes(r.NodeClass) })
})

// TypeHierarchy answers subtype questions over reference types.
type TypeHierarchy interface {
	IsSubtype(ctx context.Context, typ, ancestor ua.NodeID) bool
}

// ReferenceTypeFilter keeps references of the requested type, and of its
// subtypes when IncludeSubtypes is set. A null type keeps everything.
type ReferenceTypeFilter struct {
	Types TypeHierarchy
}

// Filter implements ReferenceFilter.
func (f ReferenceTypeFilter) Filter(ctx context.Context, refs []ua.ReferenceDescription, d *Description) []ua.ReferenceDescription {
	if d.ReferenceTypeID.IsNull() {
		return refs
	}
	if !d.IncludeSubtypes || f.Types == nil {
		return keep(refs, func(r *ua.ReferenceDescription) bool { return r.ReferenceTypeID == d.ReferenceTypeID })
	}

	matches := make(map[ua.NodeID]bool)
	return keep(refs, func(r *ua.ReferenceDescription) bool {
		ok, seen := matches[r.ReferenceTypeID]
		if !seen {
			ok = f.Types.IsSubtype(ctx, r.ReferenceTypeID, d.ReferenceTypeID)
			matches[r.ReferenceTypeID] = ok
		}
		return ok
	})
}

// DefaultFilters returns the standard chain: direction, node class,
// reference type.
func DefaultFilters(types TypeHierarchy) []ReferenceFilter {
	return []ReferenceFilter{DirectionFilter, NodeClassFilter, ReferenceTypeFilter{Types: types}}
}

// Project keeps the fields selected by mask. The target node id is always
// kept; ResultMaskAll returns refs unchanged.
func Project(refs []ua.ReferenceDescription, mask ua.ResultMask) []ua.ReferenceDescription {
	if mask.Has(ua.ResultMaskAll) {
		return refs
	}
	out := make([]ua.ReferenceDescription, len(refs))
	for i, r := range refs {
		p := ua.ReferenceDescription{NodeID: r.NodeID}
		if mask.Has(ua.ResultMaskReferenceType) {
			p.ReferenceTypeID = r.ReferenceTypeID
		}
		if mask.Has(ua.ResultMaskIsForward) {
			p.IsForward = r.IsForward
		}
		if mask.Has(ua.ResultMaskNodeClass) {
			p.NodeClass = r.NodeClass
		}
		if mask.Has(ua.ResultMaskBrowseName) {
			p.BrowseName = r.BrowseName
		}
		if mask.Has(ua.ResultMaskDisplayName) {
			p.DisplayName = r.DisplayName
		}
		if mask.Has(ua.ResultMaskTypeDefinition) {
			p.TypeDefinition = r.TypeDefinition
		}
		out[i] = p
	}
	return out
}
