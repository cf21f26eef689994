package modelfile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/nodeids"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

const buildingModel = `<?xml version="1.0" encoding="utf-8"?>
<ModelDesign xmlns="http://opcfoundation.org/UA/ModelDesign.xsd"
             xmlns:ua="http://opcfoundation.org/UA/"
             xmlns:b="urn:test:building">
  <ObjectType SymbolicName="b:RoomType" BaseType="ua:BaseObjectType">
    <Description>A room.</Description>
    <Children>
      <Property SymbolicName="b:Area" DataType="ua:Double" TypeDefinition="ua:PropertyType"/>
      <Variable SymbolicName="b:Temperature" DataType="ua:Double" AccessLevel="HistoryRead" ValueRank="Scalar" TypeDefinition="ua:BaseDataVariableType">
        <Children>
          <Property SymbolicName="b:EngineeringUnits" DataType="ua:String"/>
        </Children>
      </Variable>
      <Method SymbolicName="b:Reset"/>
    </Children>
  </ObjectType>
  <Object SymbolicName="b:Lobby" TypeDefinition="b:RoomType">
    <BrowseName>Main Lobby</BrowseName>
    <References>
      <Reference IsInverse="true">
        <ReferenceType>ua:Organizes</ReferenceType>
        <TargetId>ua:ObjectsFolder</TargetId>
      </Reference>
      <Reference>
        <ReferenceType>ua:HasComponent</ReferenceType>
        <TargetId>b:Nowhere</TargetId>
      </Reference>
    </References>
  </Object>
  <Object SymbolicName="b:Ghost"/>
  <DataType SymbolicName="b:Whatever"/>
</ModelDesign>`

const buildingIDs = `# building names
RoomType,1001,ObjectType
RoomType_Area,1002,Variable
RoomType_Temperature,1003,Variable
RoomType_Temperature_EngineeringUnits,1004,Variable
Lobby,Lobby,Object
`

func buildingResolver(t *testing.T, ns uint16) nodeids.Resolver {
	t.Helper()
	table, err := nodeids.ParseCSV(strings.NewReader(buildingIDs), ns)
	require.NoError(t, err)
	return nodeids.Chain(table, nodeids.Standard())
}

func hasRef(refs []addressspace.Reference, source, refType ua.NodeID, forward bool, target ua.NodeID) bool {
	for _, r := range refs {
		if r.Source == source && r.ReferenceTypeID == refType && r.IsForward == forward && r.TargetID.NodeID == target {
			return true
		}
	}
	return false
}

func TestLoader_MinimalModel(t *testing.T) {
	const doc = `<ModelDesign xmlns:m="urn:test:minimal">
  <ObjectType SymbolicName="m:PumpType">
    <Children>
      <Variable SymbolicName="m:Speed">
        <Children>
          <Property SymbolicName="m:Units"/>
        </Children>
      </Variable>
    </Children>
  </ObjectType>
</ModelDesign>`
	ids, err := nodeids.ParseCSV(strings.NewReader("PumpType,1,ObjectType\nPumpType_Speed,2,Variable\nPumpType_Speed_Units,3,Variable\n"), 2)
	require.NoError(t, err)

	elements, err := NewLoader(nodeids.Chain(ids, nodeids.Standard()), WithLogger(logging.NewNopLogger())).
		Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, elements, 1)
	require.Len(t, elements[0].Nodes, 3)

	pump, speed, units := ua.NewNumericNodeID(2, 1), ua.NewNumericNodeID(2, 2), ua.NewNumericNodeID(2, 3)
	refs := elements[0].References
	require.Len(t, refs, 2, "no type definition is implied without the attribute")
	assert.True(t, hasRef(refs, pump, ua.HasComponent, true, speed))
	assert.True(t, hasRef(refs, speed, ua.HasProperty, true, units))
}

func TestLoader_ParseBuilding(t *testing.T) {
	capture := logging.NewCaptureLogger()
	reg := metrics.NewRegistry()
	loader := NewLoader(buildingResolver(t, 2), WithLogger(capture), WithMetrics(reg))

	elements, err := loader.Parse(strings.NewReader(buildingModel))
	require.NoError(t, err)
	require.Len(t, elements, 2, "Ghost and DataType are skipped")

	roomType := ua.NewNumericNodeID(2, 1001)
	area := ua.NewNumericNodeID(2, 1002)
	temperature := ua.NewNumericNodeID(2, 1003)
	units := ua.NewNumericNodeID(2, 1004)

	room := elements[0]
	require.Len(t, room.Nodes, 4)
	assert.Equal(t, roomType, room.Nodes[0].ID)
	assert.Equal(t, ua.NodeClassObjectType, room.Nodes[0].Class)
	assert.Equal(t, "RoomType", room.Nodes[0].BrowseName.Name)
	assert.Equal(t, "A room.", room.Nodes[0].Description.Text)

	refs := room.References
	assert.True(t, hasRef(refs, ua.BaseObjectType, ua.HasSubtype, true, roomType))
	assert.True(t, hasRef(refs, roomType, ua.HasProperty, true, area))
	assert.True(t, hasRef(refs, roomType, ua.HasComponent, true, temperature))
	assert.True(t, hasRef(refs, temperature, ua.HasProperty, true, units), "nested prefixes resolve")
	assert.False(t, hasRef(refs, units, ua.HasTypeDefinition, true, ua.PropertyType), "only explicit type definitions")
	assert.True(t, hasRef(refs, area, ua.HasTypeDefinition, true, ua.PropertyType))
	assert.True(t, hasRef(refs, temperature, ua.HasTypeDefinition, true, ua.BaseDataVariableType))

	temp := room.Nodes[2]
	require.NotNil(t, temp.Variable)
	assert.Equal(t, ua.DataTypeDouble, temp.Variable.DataType)
	assert.Equal(t, ua.ValueRankScalar, temp.Variable.ValueRank)
	assert.Equal(t, ua.AccessLevelCurrentRead|ua.AccessLevelHistoryRead, temp.Variable.AccessLevel)

	lobby := elements[1]
	require.Len(t, lobby.Nodes, 1)
	lobbyID := ua.NewStringNodeID(2, "Lobby")
	assert.Equal(t, lobbyID, lobby.Nodes[0].ID)
	assert.Equal(t, ua.NewQualifiedName(2, "Main Lobby"), lobby.Nodes[0].BrowseName)
	assert.True(t, hasRef(lobby.References, lobbyID, ua.HasTypeDefinition, true, roomType))
	assert.True(t, hasRef(lobby.References, lobbyID, ua.Organizes, false, ua.ObjectsFolder))
	assert.Len(t, lobby.References, 2, "unresolved target is dropped")

	assert.Equal(t, 1, capture.Count(logging.WarnLevel))
}

func TestLoader_Malformed(t *testing.T) {
	loader := NewLoader(nodeids.Standard(), WithLogger(logging.NewNopLogger()))
	_, err := loader.Parse(strings.NewReader("<ModelDesign><Object"))
	assert.True(t, errors.Is(err, ErrMalformedModel))

	src := FSSource{FS: fstest.MapFS{"bad.xml": {Data: []byte("not xml at all <")}}, Path: "bad.xml"}
	_, err = loader.Load(context.Background(), src)
	assert.True(t, errors.Is(err, ErrMalformedModel))
}

func TestLoader_MissingDocumentYieldsEmptyBackend(t *testing.T) {
	loader := NewLoader(nodeids.Standard(), WithLogger(logging.NewNopLogger()))
	mem, err := loader.Load(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "absent.xml")})
	require.NoError(t, err)
	assert.Zero(t, mem.Len())
}

func TestLoader_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "building.xml")
	require.NoError(t, os.WriteFile(path, []byte(buildingModel), 0o600))

	loader := NewLoader(buildingResolver(t, 3), WithLogger(logging.NewNopLogger()))
	mem, err := loader.Load(context.Background(), FileSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 5, mem.Len())

	refs, err := mem.References(ua.ObjectsFolder)
	require.NoError(t, err)
	require.Len(t, refs, 1, "inverse reference is mirrored onto the foreign folder")
	assert.True(t, refs[0].IsForward)
	assert.Equal(t, ua.NewStringNodeID(3, "Lobby"), refs[0].TargetID.NodeID)
}

func TestLoader_InstallDropsDuplicates(t *testing.T) {
	capture := logging.NewCaptureLogger()
	loader := NewLoader(buildingResolver(t, 2), WithLogger(capture))
	elements, err := loader.Parse(strings.NewReader(buildingModel))
	require.NoError(t, err)

	mem := addressspace.NewMemoryBackend()
	loader.Install(mem, append(elements, elements[1]))
	assert.Equal(t, 5, mem.Len())
	assert.GreaterOrEqual(t, capture.Count(logging.WarnLevel), 2)
}

func TestStandard(t *testing.T) {
	mem, err := Standard(context.Background(), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	assert.Equal(t, 30, mem.Len())

	for _, id := range mem.NodeIDs() {
		assert.Equal(t, uint16(0), id.Namespace())
	}

	root, ok := mem.Node(ua.RootFolder)
	require.True(t, ok)
	assert.Equal(t, "Root", root.BrowseName.Name)

	rootRefs, err := mem.References(ua.RootFolder)
	require.NoError(t, err)
	var organized []ua.NodeID
	for _, r := range rootRefs {
		if r.IsForward && r.ReferenceTypeID == ua.Organizes {
			organized = append(organized, r.TargetID.NodeID)
		}
	}
	assert.ElementsMatch(t, []ua.NodeID{ua.ObjectsFolder, ua.TypesFolder, ua.ViewsFolder}, organized)

	hasComponent, ok := mem.Node(ua.HasComponent)
	require.True(t, ok)
	assert.Equal(t, ua.NodeClassReferenceType, hasComponent.Class)
	assert.Equal(t, "ComponentOf", hasComponent.InverseName.Text)
	assert.False(t, hasComponent.IsAbstract)

	references, _ := mem.Node(ua.References)
	assert.True(t, references.IsAbstract)
	assert.True(t, references.Symmetric)

	baseVariable, _ := mem.Node(ua.BaseVariableType)
	require.NotNil(t, baseVariable.Variable)
	assert.Equal(t, ua.ValueRankAny, baseVariable.Variable.ValueRank)
}

func TestFactory_FreezesWithStandardNamespace(t *testing.T) {
	ctx := context.Background()
	nop := logging.NewNopLogger()
	standard, err := Standard(ctx, WithLogger(nop))
	require.NoError(t, err)

	docs := fstest.MapFS{
		"building.xml": {Data: []byte(buildingModel)},
		"building.csv": {Data: []byte(buildingIDs)},
	}
	b := addressspace.NewBuilder(addressspace.WithLogger(nop))
	require.NoError(t, b.Bind(0, ua.NamespaceURIStandard, standard))
	ns, err := b.Register("urn:test:building", Factory(
		FSSource{FS: docs, Path: "building.xml"},
		FSSource{FS: docs, Path: "building.csv"},
		WithLogger(nop)))
	require.NoError(t, err)
	space, err := b.Freeze()
	require.NoError(t, err)

	descs, err := space.BrowseNode(ctx, ua.ObjectsFolder)
	require.NoError(t, err)
	var found bool
	for _, d := range descs {
		if d.NodeID.NodeID == ua.NewStringNodeID(ns, "Lobby") {
			found = true
			assert.Equal(t, ua.NewNumericNodeID(ns, 1001), d.TypeDefinition.NodeID)
		}
	}
	assert.True(t, found, "Lobby is organized under Objects")

	assert.True(t, space.IsSubtype(ctx, ua.NewNumericNodeID(ns, 1001), ua.BaseObjectType))
	assert.True(t, space.IsSubtype(ctx, ua.HasProperty, ua.HierarchicalReferences))
	assert.False(t, space.IsSubtype(ctx, ua.HasTypeDefinition, ua.HierarchicalReferences))
}

func TestFactory_MissingIDsFallsBackToStandard(t *testing.T) {
	docs := fstest.MapFS{"building.xml": {Data: []byte(buildingModel)}}
	factory := Factory(FSSource{FS: docs, Path: "building.xml"}, FSSource{FS: docs, Path: "absent.csv"},
		WithLogger(logging.NewNopLogger()))
	backend, err := factory(2, nil)
	require.NoError(t, err)
	assert.Zero(t, backend.(*addressspace.MemoryBackend).Len(), "no building names resolve")
}

type fakeS3 map[string]string

func (f fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source(t *testing.T) {
	client := fakeS3{"models/building.xml": buildingModel}
	loader := NewLoader(buildingResolver(t, 2), WithLogger(logging.NewNopLogger()))

	src := &S3Source{Client: client, Bucket: "models", Key: "models/building.xml"}
	assert.Equal(t, "s3://models/models/building.xml", src.Name())
	mem, err := loader.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 5, mem.Len())

	missing := &S3Source{Client: client, Bucket: "models", Key: "absent.xml"}
	mem, err = loader.Load(context.Background(), missing)
	require.NoError(t, err)
	assert.Zero(t, mem.Len())
}

func TestOpenLocation(t *testing.T) {
	src, err := OpenLocation(context.Background(), "/etc/uaspace/building.xml", S3Options{})
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "/etc/uaspace/building.xml"}, src)

	_, err = OpenLocation(context.Background(), "s3://bucket-only", S3Options{})
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, "BaseObjectType", stripPrefix(" ua:BaseObjectType "))
	assert.Equal(t, "Plain", stripPrefix("Plain"))

	ranks := map[string]int32{
		"":                    ua.ValueRankScalar,
		"Scalar":              ua.ValueRankScalar,
		"Array":               ua.ValueRankOneDimension,
		"ScalarOrArray":       ua.ValueRankAny,
		"OneOrMoreDimensions": ua.ValueRankOneOrMoreDimensions,
		"2":                   2,
		"bogus":               ua.ValueRankScalar,
	}
	for in, want := range ranks {
		assert.Equal(t, want, parseValueRank(in), in)
	}

	assert.Equal(t, ua.AccessLevelCurrentRead, parseAccessLevel(""))
	assert.Equal(t, ua.AccessLevelCurrentRead|ua.AccessLevelCurrentWrite, parseAccessLevel("ReadWrite"))
	assert.True(t, parseBool("true"))
	assert.False(t, parseBool("yes"))
}
