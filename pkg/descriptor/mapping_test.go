package descriptor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

type sensor struct {
	ID    string
	Name  string
	Unit  string
	Value float64
}

type room struct {
	ID      int
	Name    string
	Sensors []*sensor
}

func get(f func(any) any) Getter { return f }

func sensorDescriptor() Descriptor {
	return Descriptor{
		Name:      "TemperatureSensor",
		NodeClass: ua.NodeClassVariable,
		Fields: []Field{
			Identifier("id", get(func(o any) any { return o.(*sensor).ID })),
			DisplayName("name", get(func(o any) any { return o.(*sensor).Name })),
			Value("value", ua.DataTypeDouble, get(func(o any) any { return o.(*sensor).Value })),
			Property("unit", ua.DataTypeString, get(func(o any) any { return o.(*sensor).Unit })).Named("EngineeringUnits"),
		},
	}
}

func roomDescriptor() Descriptor {
	return Descriptor{
		Name:      "Room",
		NodeClass: ua.NodeClassObject,
		Fields: []Field{
			Identifier("id", get(func(o any) any { return o.(*room).ID })),
			DisplayName("name", get(func(o any) any { return o.(*room).Name })),
			Reference("sensors", ua.HasComponent, get(func(o any) any { return o.(*room).Sensors })).Targeting("TemperatureSensor"),
			Reference("area", ua.NodeID{}, get(func(o any) any { return 42.0 })),
		},
	}
}

func TestIntrospect_Property(t *testing.T) {
	m, err := Introspect(sensorDescriptor())
	require.NoError(t, err)

	assert.Equal(t, "TemperatureSensor", m.Name)
	assert.Equal(t, ua.BaseDataVariableType, m.TypeDefinition)
	assert.Equal(t, ua.BaseDataVariableType, m.ParentType)
	require.NotNil(t, m.ValueField)
	assert.Nil(t, m.DescriptionField)

	require.Len(t, m.References, 1)
	unit, ok := m.Reference("unit")
	require.True(t, ok)
	assert.Equal(t, ua.NodeClassVariable, unit.NodeClass)
	assert.Equal(t, ua.HasProperty, unit.ReferenceType)
	assert.Equal(t, ua.PropertyType, unit.TypeDefinition)
	assert.Equal(t, "EngineeringUnits", unit.BrowseName)
	assert.Equal(t, ua.DataTypeString, unit.DataType)
	assert.Equal(t, ua.ValueRankScalar, unit.ValueRank)
}

func TestIntrospect_Reference(t *testing.T) {
	m, err := Introspect(roomDescriptor())
	require.NoError(t, err)
	assert.Equal(t, ua.BaseObjectType, m.TypeDefinition)

	sensors, ok := m.Reference("sensors")
	require.True(t, ok)
	assert.True(t, sensors.IsObjectLink())
	assert.Equal(t, ua.NodeClassObject, sensors.NodeClass)
	assert.Equal(t, ua.HasComponent, sensors.ReferenceType)
	assert.Equal(t, ua.BaseObjectType, sensors.TypeDefinition)

	area, ok := m.Reference("area")
	require.True(t, ok)
	assert.False(t, area.IsObjectLink())
	assert.Equal(t, ua.HasComponent, area.ReferenceType, "null reference type defaults to HasComponent")
	assert.Equal(t, ua.NodeClassVariable, area.NodeClass)
	assert.Equal(t, ua.BaseDataVariableType, area.TypeDefinition)

	_, ok = m.Reference("missing")
	assert.False(t, ok)
}

func TestIntrospect_ParentOverride(t *testing.T) {
	d := roomDescriptor()
	d.ParentType = ua.FolderType
	m, err := Introspect(d)
	require.NoError(t, err)
	assert.Equal(t, ua.FolderType, m.ParentType)
	assert.Equal(t, ua.BaseObjectType, m.TypeDefinition)
}

func TestIntrospect_Invalid(t *testing.T) {
	id := Identifier("id", get(func(any) any { return 1 }))
	name := DisplayName("name", get(func(any) any { return "x" }))

	tests := []struct {
		name string
		d    Descriptor
	}{
		{"no identifier", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{name}}},
		{"two identifiers", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{id, id.Named("x"), name}}},
		{"no display name", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{id}}},
		{"two display names", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{id, name, DisplayName("alt", name.Get)}}},
		{"bad name", Descriptor{Name: "not valid", NodeClass: ua.NodeClassObject, Fields: []Field{id, name}}},
		{"method class", Descriptor{Name: "A", NodeClass: ua.NodeClassMethod, Fields: []Field{id, name}}},
		{"variable without value", Descriptor{Name: "A", NodeClass: ua.NodeClassVariable, Fields: []Field{id, name}}},
		{"missing getter", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{id, name, {Name: "p", Role: RoleProperty}}}},
		{"unknown role", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{id, name, {Name: "p", Get: id.Get}}}},
		{"targeting property", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{id, name, Property("p", ua.DataTypeInt32, id.Get).Targeting("B")}}},
		{"duplicate browse name", Descriptor{Name: "A", NodeClass: ua.NodeClassObject, Fields: []Field{
			id, name,
			Property("p", ua.DataTypeInt32, id.Get),
			Property("q", ua.DataTypeInt32, id.Get).Named("p"),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Introspect(tt.d)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrInvalidDescriptor), "got %v", err)
		})
	}
}

func TestIntrospectAll_SkipsInvalid(t *testing.T) {
	capture := logging.NewCaptureLogger()
	bad := Descriptor{Name: "Broken", NodeClass: ua.NodeClassObject}
	orphan := roomDescriptor()
	orphan.Name = "Hallway"
	orphan.Fields[2] = orphan.Fields[2].Targeting("Nowhere")

	mappings := IntrospectAll([]Descriptor{sensorDescriptor(), bad, roomDescriptor(), roomDescriptor(), orphan}, capture)

	require.Len(t, mappings, 3)
	assert.Equal(t, "TemperatureSensor", mappings[0].Name)
	assert.Equal(t, "Room", mappings[1].Name)
	assert.Equal(t, "Hallway", mappings[2].Name)
	assert.Equal(t, 2, capture.Count(logging.ErrorLevel), "invalid and duplicate descriptors are logged")
	assert.Equal(t, 1, capture.Count(logging.WarnLevel), "unknown target is logged")
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "Identifier", RoleIdentifier.String())
	assert.Equal(t, "Reference", RoleReference.String())
	assert.Equal(t, "Unknown", Role(99).String())
}
