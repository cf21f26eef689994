package descriptor

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
	"github.com/dd0wney/cluso-uaspace/pkg/validation"
)

// ErrInvalidDescriptor marks a descriptor that cannot produce a mapping.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// ReferenceMapping describes the member node generated for one Property
// or Reference field.
type ReferenceMapping struct {
	Field          Field
	NodeClass      ua.NodeClass
	BrowseName     string
	DisplayName    string
	Description    string
	ReferenceType  ua.NodeID
	TypeDefinition ua.NodeID
	DataType       ua.NodeID
	ValueRank      int32
	// Target is the descriptor name of referenced objects, if any.
	Target string
}

// IsObjectLink reports whether the member links to other objects instead
// of carrying a value.
func (r ReferenceMapping) IsObjectLink() bool {
	return r.Target != ""
}

// NodeMapping is the validated form of a Descriptor.
type NodeMapping struct {
	Name        string
	NodeClass   ua.NodeClass
	Description string
	Identifier  Field
	DisplayName Field
	// DescriptionField and ValueField are nil when the descriptor has none.
	DescriptionField *Field
	ValueField       *Field
	// References holds the members in declaration order.
	References     []ReferenceMapping
	TypeDefinition ua.NodeID
	ParentType     ua.NodeID
}

// Reference returns the member mapping for a field name.
func (m *NodeMapping) Reference(field string) (ReferenceMapping, bool) {
	for _, r := range m.References {
		if r.Field.Name == field {
			return r, true
		}
	}
	return ReferenceMapping{}, false
}

// Member returns the member mapping with the given browse name.
func (m *NodeMapping) Member(browseName string) (ReferenceMapping, bool) {
	for _, r := range m.References {
		if r.BrowseName == browseName {
			return r, true
		}
	}
	return ReferenceMapping{}, false
}

// BaseType returns the standard base type for a node class.
func BaseType(class ua.NodeClass) ua.NodeID {
	if class == ua.NodeClassVariable {
		return ua.BaseDataVariableType
	}
	return ua.BaseObjectType
}

func invalid(d *Descriptor, format string, args ...any) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidDescriptor, d.Name, fmt.Sprintf(format, args...))
}

// Introspect validates a descriptor and produces its NodeMapping. It
// requires exactly one Identifier and one DisplayName field, at most one
// Description and Value field, unique field names, a getter on every
// field, and a Value field for Variable-class descriptors.
func Introspect(d Descriptor) (*NodeMapping, error) {
	if err := validation.ValidateSymbolicName(d.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if d.NodeClass != ua.NodeClassObject && d.NodeClass != ua.NodeClassVariable {
		return nil, invalid(&d, "node class %s is not Object or Variable", d.NodeClass)
	}

	m := &NodeMapping{
		Name:           d.Name,
		NodeClass:      d.NodeClass,
		Description:    d.Description,
		TypeDefinition: BaseType(d.NodeClass),
		ParentType:     BaseType(d.NodeClass),
	}
	if !d.ParentType.IsNull() {
		m.ParentType = d.ParentType
	}

	var identifiers, displayNames int
	seen := make(map[string]bool, len(d.Fields))
	browseNames := make(map[string]bool, len(d.Fields))
	for i := range d.Fields {
		f := d.Fields[i]
		if f.Name == "" {
			return nil, invalid(&d, "field %d has no name", i)
		}
		if seen[f.Name] {
			return nil, invalid(&d, "field %s declared twice", f.Name)
		}
		seen[f.Name] = true
		if f.Get == nil {
			return nil, invalid(&d, "field %s has no getter", f.Name)
		}

		switch f.Role {
		case RoleIdentifier:
			identifiers++
			m.Identifier = f
		case RoleDisplayName:
			displayNames++
			m.DisplayName = f
		case RoleDescription:
			if m.DescriptionField != nil {
				return nil, invalid(&d, "more than one Description field")
			}
			m.DescriptionField = &f
		case RoleValue:
			if m.ValueField != nil {
				return nil, invalid(&d, "more than one Value field")
			}
			m.ValueField = &f
		case RoleProperty, RoleReference:
			rm, err := referenceMapping(f)
			if err != nil {
				return nil, invalid(&d, "%v", err)
			}
			if browseNames[rm.BrowseName] {
				return nil, invalid(&d, "browse name %s used by two members", rm.BrowseName)
			}
			browseNames[rm.BrowseName] = true
			m.References = append(m.References, rm)
		default:
			return nil, invalid(&d, "field %s has unknown role", f.Name)
		}
	}

	if identifiers != 1 {
		return nil, invalid(&d, "expected exactly one Identifier field, found %d", identifiers)
	}
	if displayNames != 1 {
		return nil, invalid(&d, "expected exactly one DisplayName field, found %d", displayNames)
	}
	if d.NodeClass == ua.NodeClassVariable && m.ValueField == nil {
		return nil, invalid(&d, "Variable descriptors need a Value field")
	}
	return m, nil
}

func referenceMapping(f Field) (ReferenceMapping, error) {
	name := f.BrowseNameOrName()
	if err := validation.ValidateSymbolicName(name); err != nil {
		return ReferenceMapping{}, err
	}
	rm := ReferenceMapping{
		Field:       f,
		BrowseName:  name,
		DisplayName: name,
		DataType:    f.DataType,
		ValueRank:   f.ValueRank,
		Target:      f.Target,
	}
	if rm.DataType.IsNull() {
		rm.DataType = ua.DataTypeBaseDataType
	}

	switch f.Role {
	case RoleProperty:
		if f.Target != "" {
			return ReferenceMapping{}, fmt.Errorf("property %s cannot target objects", f.Name)
		}
		rm.NodeClass = ua.NodeClassVariable
		rm.ReferenceType = ua.HasProperty
		rm.TypeDefinition = ua.PropertyType
	case RoleReference:
		rm.ReferenceType = f.ReferenceType
		if rm.ReferenceType.IsNull() {
			rm.ReferenceType = ua.HasComponent
		}
		if f.Target != "" {
			rm.NodeClass = ua.NodeClassObject
			rm.TypeDefinition = ua.BaseObjectType
		} else {
			rm.NodeClass = ua.NodeClassVariable
			rm.TypeDefinition = ua.BaseDataVariableType
		}
	}
	if !f.TypeDefinition.IsNull() {
		rm.TypeDefinition = f.TypeDefinition
	}
	return rm, nil
}

// IntrospectAll maps every descriptor, logging and skipping the invalid
// ones. Descriptor names must be unique; later duplicates are skipped.
// Reference targets that name no valid descriptor are logged and the
// member is kept as a plain link that will not resolve.
func IntrospectAll(descriptors []Descriptor, logger logging.Logger) []*NodeMapping {
	logger = logging.OrDefault(logger).With(logging.Component("descriptor"))

	out := make([]*NodeMapping, 0, len(descriptors))
	byName := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if byName[d.Name] {
			logger.Error("duplicate descriptor skipped", logging.SymbolicName(d.Name))
			continue
		}
		m, err := Introspect(d)
		if err != nil {
			logger.Error("descriptor rejected", logging.SymbolicName(d.Name), logging.Error(err))
			continue
		}
		byName[d.Name] = true
		out = append(out, m)
	}

	for _, m := range out {
		for _, r := range m.References {
			if r.Target != "" && !byName[r.Target] {
				logger.Warn("reference targets an unknown descriptor",
					logging.SymbolicName(m.Name), logging.String("field", r.Field.Name), logging.String("target", r.Target))
			}
		}
	}
	return out
}
