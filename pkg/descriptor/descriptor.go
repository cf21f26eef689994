// Package descriptor declares domain types as static field tables and
// turns them into node mappings. A Descriptor lists each field of a
// runtime object together with the role it plays in the address space;
// Introspect validates the table once and produces a NodeMapping.
package descriptor

import (
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// Role is the part a field plays in the node built for an object.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleIdentifier
	RoleDisplayName
	RoleDescription
	RoleValue
	RoleProperty
	RoleReference
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "Identifier"
	case RoleDisplayName:
		return "DisplayName"
	case RoleDescription:
		return "Description"
	case RoleValue:
		return "Value"
	case RoleProperty:
		return "Property"
	case RoleReference:
		return "Reference"
	default:
		return "Unknown"
	}
}

// Getter reads a field from a runtime object.
type Getter func(obj any) any

// Field describes one field of a domain type.
type Field struct {
	Name string
	Role Role
	// BrowseName overrides Name as the browse name of the member node.
	BrowseName string
	// ReferenceType is the edge type for Reference fields. Defaults to
	// HasComponent.
	ReferenceType ua.NodeID
	// Target names the descriptor of the objects a Reference field points
	// at. Without a target the field is exposed as a data variable.
	Target string
	// TypeDefinition overrides the member's default type definition.
	TypeDefinition ua.NodeID
	DataType       ua.NodeID
	ValueRank      int32
	Get            Getter
}

// Descriptor is the static description of one domain type.
type Descriptor struct {
	Name        string
	NodeClass   ua.NodeClass
	Description string
	// ParentType is the supertype of the generated type node. Defaults to
	// the base type of NodeClass.
	ParentType ua.NodeID
	Fields     []Field
}

// Identifier declares the field that carries the object's id.
func Identifier(name string, get Getter) Field {
	return Field{Name: name, Role: RoleIdentifier, ValueRank: ua.ValueRankScalar, Get: get}
}

// DisplayName declares the field that carries the display name.
func DisplayName(name string, get Getter) Field {
	return Field{Name: name, Role: RoleDisplayName, ValueRank: ua.ValueRankScalar, Get: get}
}

// Description declares the field that carries the description.
func Description(name string, get Getter) Field {
	return Field{Name: name, Role: RoleDescription, ValueRank: ua.ValueRankScalar, Get: get}
}

// Value declares the primitive value of a Variable-class type.
func Value(name string, dataType ua.NodeID, get Getter) Field {
	return Field{Name: name, Role: RoleValue, DataType: dataType, ValueRank: ua.ValueRankScalar, Get: get}
}

// Property declares a field exposed through HasProperty.
func Property(name string, dataType ua.NodeID, get Getter) Field {
	return Field{Name: name, Role: RoleProperty, DataType: dataType, ValueRank: ua.ValueRankScalar, Get: get}
}

// Reference declares a field exposed through refType. Use Targeting to
// point it at objects of another descriptor.
func Reference(name string, refType ua.NodeID, get Getter) Field {
	return Field{Name: name, Role: RoleReference, ReferenceType: refType, DataType: ua.DataTypeBaseDataType, ValueRank: ua.ValueRankScalar, Get: get}
}

// Targeting returns a copy of f pointing at objects described by target.
// The getter may return a single object or a slice of objects.
func (f Field) Targeting(target string) Field {
	f.Target = target
	return f
}

// Named returns a copy of f with an explicit browse name.
func (f Field) Named(browseName string) Field {
	f.BrowseName = browseName
	return f
}

// WithValueRank returns a copy of f with the given value rank.
func (f Field) WithValueRank(rank int32) Field {
	f.ValueRank = rank
	return f
}

// BrowseNameOrName returns the browse name, falling back to the field name.
func (f Field) BrowseNameOrName() string {
	if f.BrowseName != "" {
		return f.BrowseName
	}
	return f.Name
}
