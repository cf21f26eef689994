package ua

// NodeClass is the kind of a node. Values are single bits so they can be
// OR-ed together into a NodeClassMask.
type NodeClass uint32

const (
	NodeClassUnspecified   NodeClass = 0
	NodeClassObject        NodeClass = 1
	NodeClassVariable      NodeClass = 2
	NodeClassMethod        NodeClass = 4
	NodeClassObjectType    NodeClass = 8
	NodeClassVariableType  NodeClass = 16
	NodeClassReferenceType NodeClass = 32
	NodeClassDataType      NodeClass = 64
	NodeClassView          NodeClass = 128
)

// String returns the node class name.
func (c NodeClass) String() string {
	switch c {
	case NodeClassUnspecified:
		return "Unspecified"
	case NodeClassObject:
		return "Object"
	case NodeClassVariable:
		return "Variable"
	case NodeClassMethod:
		return "Method"
	case NodeClassObjectType:
		return "ObjectType"
	case NodeClassVariableType:
		return "VariableType"
	case NodeClassReferenceType:
		return "ReferenceType"
	case NodeClassDataType:
		return "DataType"
	case NodeClassView:
		return "View"
	default:
		return "Unknown"
	}
}

// IsType reports whether the class is one of the type node classes.
func (c NodeClass) IsType() bool {
	switch c {
	case NodeClassObjectType, NodeClassVariableType, NodeClassReferenceType, NodeClassDataType:
		return true
	}
	return false
}

// HasValue reports whether nodes of this class carry variable attributes.
func (c NodeClass) HasValue() bool {
	return c == NodeClassVariable || c == NodeClassVariableType
}

// ParseNodeClass converts a node class name into its value.
func ParseNodeClass(s string) (NodeClass, bool) {
	switch s {
	case "Object":
		return NodeClassObject, true
	case "Variable":
		return NodeClassVariable, true
	case "Method":
		return NodeClassMethod, true
	case "ObjectType":
		return NodeClassObjectType, true
	case "VariableType":
		return NodeClassVariableType, true
	case "ReferenceType":
		return NodeClassReferenceType, true
	case "DataType":
		return NodeClassDataType, true
	case "View":
		return NodeClassView, true
	}
	return NodeClassUnspecified, false
}

// QualifiedName is a namespace-qualified browse name.
type QualifiedName struct {
	NamespaceIndex uint16 `json:"namespaceIndex"`
	Name           string `json:"name"`
}

// NewQualifiedName creates a QualifiedName.
func NewQualifiedName(ns uint16, name string) QualifiedName {
	return QualifiedName{NamespaceIndex: ns, Name: name}
}

// String formats the name as "ns:Name", omitting namespace 0.
func (q QualifiedName) String() string {
	if q.NamespaceIndex == 0 {
		return q.Name
	}
	return formatUint(uint64(q.NamespaceIndex)) + ":" + q.Name
}

// LocalizedText is human-readable text with an optional locale.
type LocalizedText struct {
	Locale string `json:"locale,omitempty"`
	Text   string `json:"text"`
}

// NewLocalizedText creates a LocalizedText.
func NewLocalizedText(locale, text string) LocalizedText {
	return LocalizedText{Locale: locale, Text: text}
}

// IsEmpty reports whether neither text nor locale is set.
func (l LocalizedText) IsEmpty() bool {
	return l.Text == "" && l.Locale == ""
}

// VariableAttributes holds the attributes only Variable and VariableType
// nodes carry.
type VariableAttributes struct {
	Value           any         `json:"value,omitempty"`
	DataType        NodeID      `json:"dataType"`
	ValueRank       int32       `json:"valueRank"`
	AccessLevel     AccessLevel `json:"accessLevel"`
	UserAccessLevel AccessLevel `json:"userAccessLevel"`
	Historizing     bool        `json:"historizing"`
}

// ReferenceNode is a typed, directed edge owned by its source node.
type ReferenceNode struct {
	ReferenceTypeID NodeID         `json:"referenceTypeId"`
	IsForward       bool           `json:"isForward"`
	TargetID        ExpandedNodeID `json:"targetId"`
}

// Node is one vertex of the address space. The populated attribute set
// depends on Class: IsAbstract applies to type classes, Symmetric and
// InverseName to ReferenceType, Variable to Variable and VariableType.
type Node struct {
	ID            NodeID              `json:"nodeId"`
	Class         NodeClass           `json:"nodeClass"`
	BrowseName    QualifiedName       `json:"browseName"`
	DisplayName   LocalizedText       `json:"displayName"`
	Description   LocalizedText       `json:"description"`
	WriteMask     uint32              `json:"writeMask"`
	UserWriteMask uint32              `json:"userWriteMask"`
	IsAbstract    bool                `json:"isAbstract,omitempty"`
	Symmetric     bool                `json:"symmetric,omitempty"`
	InverseName   LocalizedText       `json:"inverseName,omitempty"`
	Variable      *VariableAttributes `json:"variable,omitempty"`
	References    []ReferenceNode     `json:"references,omitempty"`
}

// AddReference appends an owned reference.
func (n *Node) AddReference(refType NodeID, forward bool, target ExpandedNodeID) {
	n.References = append(n.References, ReferenceNode{
		ReferenceTypeID: refType,
		IsForward:       forward,
		TargetID:        target,
	})
}

// TypeDefinition returns the target of the node's forward HasTypeDefinition
// reference.
func (n *Node) TypeDefinition() (ExpandedNodeID, bool) {
	for _, ref := range n.References {
		if ref.IsForward && ref.ReferenceTypeID == HasTypeDefinition {
			return ref.TargetID, true
		}
	}
	return ExpandedNodeID{}, false
}

// Clone returns a copy that shares no mutable state with n.
func (n *Node) Clone() *Node {
	c := *n
	if n.Variable != nil {
		v := *n.Variable
		c.Variable = &v
	}
	if n.References != nil {
		c.References = make([]ReferenceNode, len(n.References))
		copy(c.References, n.References)
	}
	return &c
}

// ReferenceDescription is one browse result entry: an edge plus the
// resolved attributes of its target.
type ReferenceDescription struct {
	ReferenceTypeID NodeID         `json:"referenceTypeId"`
	IsForward       bool           `json:"isForward"`
	NodeID          ExpandedNodeID `json:"nodeId"`
	BrowseName      QualifiedName  `json:"browseName"`
	DisplayName     LocalizedText  `json:"displayName"`
	NodeClass       NodeClass      `json:"nodeClass"`
	TypeDefinition  ExpandedNodeID `json:"typeDefinition"`
}
