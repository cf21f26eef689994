package ua

// Namespace URIs for the reserved namespace indices.
const (
	NamespaceURIStandard          = "http://opcfoundation.org/UA/"
	NamespaceIndexStandard uint16 = 0
	NamespaceIndexServer   uint16 = 1
	// FirstUserNamespace is the first index handed to registered backends.
	FirstUserNamespace uint16 = 2
)

// Well-known namespace 0 nodes.
var (
	// Reference types.
	References                = NewNumericNodeID(0, 31)
	NonHierarchicalReferences = NewNumericNodeID(0, 32)
	HierarchicalReferences    = NewNumericNodeID(0, 33)
	HasChild                  = NewNumericNodeID(0, 34)
	Organizes                 = NewNumericNodeID(0, 35)
	HasEventSource            = NewNumericNodeID(0, 36)
	HasModellingRule          = NewNumericNodeID(0, 37)
	HasEncoding               = NewNumericNodeID(0, 38)
	HasDescription            = NewNumericNodeID(0, 39)
	HasTypeDefinition         = NewNumericNodeID(0, 40)
	GeneratesEvent            = NewNumericNodeID(0, 41)
	Aggregates                = NewNumericNodeID(0, 44)
	HasSubtype                = NewNumericNodeID(0, 45)
	HasProperty               = NewNumericNodeID(0, 46)
	HasComponent              = NewNumericNodeID(0, 47)
	HasNotifier               = NewNumericNodeID(0, 48)
	HasOrderedComponent       = NewNumericNodeID(0, 49)

	// Object and variable types.
	BaseObjectType       = NewNumericNodeID(0, 58)
	FolderType           = NewNumericNodeID(0, 61)
	BaseVariableType     = NewNumericNodeID(0, 62)
	BaseDataVariableType = NewNumericNodeID(0, 63)
	PropertyType         = NewNumericNodeID(0, 68)

	// Folders.
	RootFolder           = NewNumericNodeID(0, 84)
	ObjectsFolder        = NewNumericNodeID(0, 85)
	TypesFolder          = NewNumericNodeID(0, 86)
	ViewsFolder          = NewNumericNodeID(0, 87)
	ObjectTypesFolder    = NewNumericNodeID(0, 88)
	VariableTypesFolder  = NewNumericNodeID(0, 89)
	DataTypesFolder      = NewNumericNodeID(0, 90)
	ReferenceTypesFolder = NewNumericNodeID(0, 91)

	Server = NewNumericNodeID(0, 2253)
)

// Built-in data types.
var (
	DataTypeBoolean       = NewNumericNodeID(0, 1)
	DataTypeSByte         = NewNumericNodeID(0, 2)
	DataTypeByte          = NewNumericNodeID(0, 3)
	DataTypeInt16         = NewNumericNodeID(0, 4)
	DataTypeUInt16        = NewNumericNodeID(0, 5)
	DataTypeInt32         = NewNumericNodeID(0, 6)
	DataTypeUInt32        = NewNumericNodeID(0, 7)
	DataTypeInt64         = NewNumericNodeID(0, 8)
	DataTypeUInt64        = NewNumericNodeID(0, 9)
	DataTypeFloat         = NewNumericNodeID(0, 10)
	DataTypeDouble        = NewNumericNodeID(0, 11)
	DataTypeString        = NewNumericNodeID(0, 12)
	DataTypeDateTime      = NewNumericNodeID(0, 13)
	DataTypeGUID          = NewNumericNodeID(0, 14)
	DataTypeByteString    = NewNumericNodeID(0, 15)
	DataTypeNodeID        = NewNumericNodeID(0, 17)
	DataTypeQualifiedName = NewNumericNodeID(0, 20)
	DataTypeLocalizedText = NewNumericNodeID(0, 21)
	DataTypeBaseDataType  = NewNumericNodeID(0, 24)
)
