package ua

import "strings"

// BrowseDirection selects which reference directions a browse returns.
type BrowseDirection uint32

const (
	BrowseDirectionForward BrowseDirection = 0
	BrowseDirectionInverse BrowseDirection = 1
	BrowseDirectionBoth    BrowseDirection = 2
)

// String returns the direction name.
func (d BrowseDirection) String() string {
	switch d {
	case BrowseDirectionForward:
		return "Forward"
	case BrowseDirectionInverse:
		return "Inverse"
	case BrowseDirectionBoth:
		return "Both"
	default:
		return "Invalid"
	}
}

// Valid reports whether d is one of the defined directions.
func (d BrowseDirection) Valid() bool {
	return d <= BrowseDirectionBoth
}

// Matches reports whether a reference with the given direction passes d.
func (d BrowseDirection) Matches(isForward bool) bool {
	switch d {
	case BrowseDirectionForward:
		return isForward
	case BrowseDirectionInverse:
		return !isForward
	case BrowseDirectionBoth:
		return true
	}
	return false
}

// ParseBrowseDirection parses a direction name, case-insensitively.
func ParseBrowseDirection(s string) (BrowseDirection, bool) {
	switch strings.ToLower(s) {
	case "forward", "":
		return BrowseDirectionForward, true
	case "inverse":
		return BrowseDirectionInverse, true
	case "both":
		return BrowseDirectionBoth, true
	}
	return 0, false
}

// NodeClassMask is a bit set of NodeClass values. Zero selects every class.
type NodeClassMask uint32

// Includes reports whether class c passes the mask.
func (m NodeClassMask) Includes(c NodeClass) bool {
	return m == 0 || uint32(m)&uint32(c) != 0
}

// ResultMask selects which ReferenceDescription fields a browse returns.
// The target NodeID is always returned.
type ResultMask uint32

const (
	ResultMaskReferenceType  ResultMask = 1
	ResultMaskIsForward      ResultMask = 2
	ResultMaskNodeClass      ResultMask = 4
	ResultMaskBrowseName     ResultMask = 8
	ResultMaskDisplayName    ResultMask = 16
	ResultMaskTypeDefinition ResultMask = 32
	ResultMaskAll            ResultMask = 63

	ResultMaskReferenceTypeInfo = ResultMaskReferenceType | ResultMaskIsForward
	ResultMaskTargetInfo        = ResultMaskNodeClass | ResultMaskBrowseName | ResultMaskDisplayName | ResultMaskTypeDefinition
)

// Has reports whether every bit of field is set in m.
func (m ResultMask) Has(field ResultMask) bool {
	return m&field == field
}

// AccessLevel is the bit set describing how a variable's value may be accessed.
type AccessLevel uint8

const (
	AccessLevelCurrentRead  AccessLevel = 1
	AccessLevelCurrentWrite AccessLevel = 2
	AccessLevelHistoryRead  AccessLevel = 4
	AccessLevelHistoryWrite AccessLevel = 8
)

// Has reports whether every bit of a is set in l.
func (l AccessLevel) Has(a AccessLevel) bool {
	return l&a == a
}

// Value ranks.
const (
	ValueRankScalarOrOneDimension int32 = -3
	ValueRankAny                  int32 = -2
	ValueRankScalar               int32 = -1
	ValueRankOneOrMoreDimensions  int32 = 0
	ValueRankOneDimension         int32 = 1
)
