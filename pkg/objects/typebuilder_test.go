package objects

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/descriptor"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

type thermometer struct {
	ID      string
	Name    string
	Celsius float64
	Unit    string
}

type ward struct {
	ID       int
	Name     string
	Note     string
	Capacity int
	Sensors  []*thermometer
}

func thermometerDescriptor() descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:      "Thermometer",
		NodeClass: ua.NodeClassVariable,
		Fields: []descriptor.Field{
			descriptor.Identifier("id", func(o any) any { return o.(*thermometer).ID }),
			descriptor.DisplayName("name", func(o any) any { return o.(*thermometer).Name }),
			descriptor.Value("celsius", ua.DataTypeDouble, func(o any) any { return o.(*thermometer).Celsius }),
			descriptor.Property("unit", ua.DataTypeString, func(o any) any { return o.(*thermometer).Unit }),
		},
	}
}

func wardDescriptor() descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:      "Ward",
		NodeClass: ua.NodeClassObject,
		Fields: []descriptor.Field{
			descriptor.Identifier("id", func(o any) any { return o.(*ward).ID }),
			descriptor.DisplayName("name", func(o any) any { return o.(*ward).Name }),
			descriptor.Description("note", func(o any) any { return o.(*ward).Note }),
			descriptor.Property("capacity", ua.DataTypeInt32, func(o any) any { return o.(*ward).Capacity }),
			descriptor.Reference("sensors", ua.HasComponent, func(o any) any { return o.(*ward).Sensors }).Targeting("Thermometer"),
		},
	}
}

// coreLookup holds the standard nodes type building resolves parents
// against.
func coreLookup(t *testing.T) *addressspace.MemoryBackend {
	t.Helper()
	m := addressspace.NewMemoryBackend()
	objects := &ua.Node{ID: ua.ObjectsFolder, Class: ua.NodeClassObject, BrowseName: ua.NewQualifiedName(0, "Objects")}
	objects.AddReference(ua.HasTypeDefinition, true, ua.Expand(ua.FolderType))
	require.NoError(t, m.AddNodes(
		objects,
		&ua.Node{ID: ua.BaseObjectType, Class: ua.NodeClassObjectType, BrowseName: ua.NewQualifiedName(0, "BaseObjectType")},
		&ua.Node{ID: ua.FolderType, Class: ua.NodeClassObjectType, BrowseName: ua.NewQualifiedName(0, "FolderType")},
		&ua.Node{ID: ua.BaseDataVariableType, Class: ua.NodeClassVariableType, BrowseName: ua.NewQualifiedName(0, "BaseDataVariableType")},
		&ua.Node{ID: ua.PropertyType, Class: ua.NodeClassVariableType, BrowseName: ua.NewQualifiedName(0, "PropertyType")},
	))
	return m
}

func mustMap(t *testing.T, d descriptor.Descriptor) *descriptor.NodeMapping {
	t.Helper()
	m, err := descriptor.Introspect(d)
	require.NoError(t, err)
	return m
}

func TestTypeBuilder_ObjectType(t *testing.T) {
	b := NewTypeBuilder(2, coreLookup(t), WithLogger(logging.NewNopLogger()))
	out := b.Build(mustMap(t, wardDescriptor()))

	require.NotNil(t, out.Type)
	assert.Equal(t, ua.NewStringNodeID(2, "WardType"), out.Type.ID)
	assert.Equal(t, ua.NodeClassObjectType, out.Type.Class)
	assert.Equal(t, "WardType", out.Type.BrowseName.Name)

	require.Len(t, out.Declarations, 2)
	require.Len(t, out.Members, 2)
	assert.Len(t, out.Nodes(), 3)

	capacity := out.Declarations[0]
	assert.Equal(t, ua.NewStringNodeID(2, "WardType:capacity"), capacity.ID)
	assert.Equal(t, ua.NodeClassVariable, capacity.Class)
	require.NotNil(t, capacity.Variable)
	assert.Nil(t, capacity.Variable.Value)
	assert.Equal(t, ua.AccessLevelCurrentRead|ua.AccessLevelHistoryRead, capacity.Variable.AccessLevel)
	assert.Zero(t, capacity.WriteMask)
	td, ok := capacity.TypeDefinition()
	require.True(t, ok)
	assert.Equal(t, ua.PropertyType, td.NodeID)

	sensors := out.Declarations[1]
	assert.Equal(t, ua.NodeClassObject, sensors.Class)
	assert.Nil(t, sensors.Variable)

	assert.Equal(t, ua.HasProperty, out.Members[0].ReferenceTypeID)
	assert.Equal(t, ua.HasComponent, out.Members[1].ReferenceTypeID)
	for _, ref := range out.Members {
		assert.Equal(t, out.Type.ID, ref.Source)
		assert.True(t, ref.IsForward)
	}

	require.NotNil(t, out.Subtype)
	assert.Equal(t, ua.BaseObjectType, out.Subtype.Source)
	assert.Equal(t, ua.HasSubtype, out.Subtype.ReferenceTypeID)
	assert.Equal(t, out.Type.ID, out.Subtype.TargetID.NodeID)
}

func TestTypeBuilder_VariableType(t *testing.T) {
	b := NewTypeBuilder(3, coreLookup(t), WithLogger(logging.NewNopLogger()))
	out := b.Build(mustMap(t, thermometerDescriptor()))

	assert.Equal(t, ua.NodeClassVariableType, out.Type.Class)
	require.NotNil(t, out.Type.Variable)
	assert.Equal(t, ua.DataTypeDouble, out.Type.Variable.DataType)
	require.NotNil(t, out.Subtype)
	assert.Equal(t, ua.BaseDataVariableType, out.Subtype.Source)
}

func TestTypeBuilder_MissingParentOmitsSubtype(t *testing.T) {
	capture := logging.NewCaptureLogger()
	b := NewTypeBuilder(2, addressspace.NewMemoryBackend(), WithLogger(capture))
	out := b.Build(mustMap(t, wardDescriptor()))

	assert.Nil(t, out.Subtype)
	assert.Len(t, out.Nodes(), 3)
	assert.Equal(t, 1, capture.Count(logging.WarnLevel))
}

func TestTypeNodes_Install(t *testing.T) {
	m := addressspace.NewMemoryBackend()
	out := NewTypeBuilder(2, coreLookup(t), WithLogger(logging.NewNopLogger())).Build(mustMap(t, wardDescriptor()))
	require.NoError(t, out.Install(m))

	refs, err := m.References(out.Type.ID)
	require.NoError(t, err)
	var forward, inverse int
	for _, r := range refs {
		if r.IsForward {
			forward++
		} else {
			inverse++
		}
	}
	assert.Equal(t, 2, forward, "one edge per declaration")
	assert.Equal(t, 1, inverse, "mirror of HasSubtype")

	parentRefs, err := m.References(ua.BaseObjectType)
	require.NoError(t, err)
	require.Len(t, parentRefs, 2, "subtype edge plus the mirrored type definition of the object link")
	byType := make(map[ua.NodeID]addressspace.Reference, len(parentRefs))
	for _, r := range parentRefs {
		byType[r.ReferenceTypeID] = r
	}
	subtype, ok := byType[ua.HasSubtype]
	require.True(t, ok)
	assert.True(t, subtype.IsForward)
	assert.Equal(t, out.Type.ID, subtype.TargetID.NodeID)
	typeDef, ok := byType[ua.HasTypeDefinition]
	require.True(t, ok)
	assert.False(t, typeDef.IsForward)

	assert.Error(t, out.Install(m), "installing twice collides")
}

func TestTypeBuilder_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	lookup := coreLookup(t)

	properties.Property("N members give N+1 nodes and N edges, identically on rebuild", prop.ForAll(
		func(n int, ns uint16) bool {
			d := descriptor.Descriptor{
				Name:      "Generated",
				NodeClass: ua.NodeClassObject,
				Fields: []descriptor.Field{
					descriptor.Identifier("id", func(any) any { return 1 }),
					descriptor.DisplayName("name", func(any) any { return "g" }),
				},
			}
			for i := 0; i < n; i++ {
				d.Fields = append(d.Fields, descriptor.Property(fmt.Sprintf("p%d", i), ua.DataTypeInt32, func(any) any { return i }))
			}
			m, err := descriptor.Introspect(d)
			if err != nil {
				return false
			}
			b := NewTypeBuilder(ns, lookup, WithLogger(logging.NewNopLogger()))
			first, second := b.Build(m), b.Build(m)
			if len(first.Nodes()) != n+1 || len(first.Members) != n {
				return false
			}
			for i, node := range first.Nodes() {
				other := second.Nodes()[i]
				if node.ID != other.ID || node.BrowseName != other.BrowseName || node.Class != other.Class {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
		gen.UInt16Range(2, 50),
	))

	properties.TestingRun(t)
}
