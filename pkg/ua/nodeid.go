package ua

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDType identifies which identifier field of a NodeID is populated.
type IDType uint8

const (
	IDTypeNumeric IDType = iota
	IDTypeString
	IDTypeGUID
	IDTypeOpaque
)

// String returns the text-format prefix for the identifier type.
func (t IDType) String() string {
	switch t {
	case IDTypeNumeric:
		return "i"
	case IDTypeString:
		return "s"
	case IDTypeGUID:
		return "g"
	case IDTypeOpaque:
		return "b"
	default:
		return "?"
	}
}

// ErrInvalidNodeID is returned when a NodeID text form cannot be parsed.
var ErrInvalidNodeID = errors.New("invalid node id")

// NodeID identifies a node within one namespace partition.
//
// NodeID is comparable and can be used directly as a map key. Opaque
// identifiers are stored as raw bytes inside the text field.
type NodeID struct {
	ns      uint16
	idType  IDType
	numeric uint32
	text    string
	guid    uuid.UUID
}

// NewNumericNodeID creates a numeric NodeID.
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{ns: ns, idType: IDTypeNumeric, numeric: id}
}

// NewStringNodeID creates a string NodeID.
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{ns: ns, idType: IDTypeString, text: id}
}

// NewGUIDNodeID creates a GUID NodeID.
func NewGUIDNodeID(ns uint16, id uuid.UUID) NodeID {
	return NodeID{ns: ns, idType: IDTypeGUID, guid: id}
}

// NewOpaqueNodeID creates an opaque (ByteString) NodeID.
func NewOpaqueNodeID(ns uint16, id []byte) NodeID {
	return NodeID{ns: ns, idType: IDTypeOpaque, text: string(id)}
}

// Namespace returns the namespace index.
func (n NodeID) Namespace() uint16 { return n.ns }

// Type returns the identifier type.
func (n NodeID) Type() IDType { return n.idType }

// Numeric returns the numeric identifier, or 0 for other identifier types.
func (n NodeID) Numeric() uint32 { return n.numeric }

// StringID returns the string identifier, or "" for other identifier types.
func (n NodeID) StringID() string {
	if n.idType != IDTypeString {
		return ""
	}
	return n.text
}

// GUID returns the GUID identifier.
func (n NodeID) GUID() uuid.UUID { return n.guid }

// Opaque returns a copy of the opaque identifier bytes.
func (n NodeID) Opaque() []byte {
	if n.idType != IDTypeOpaque {
		return nil
	}
	return []byte(n.text)
}

// WithNamespace returns the same identifier in another namespace.
func (n NodeID) WithNamespace(ns uint16) NodeID {
	n.ns = ns
	return n
}

// IsNull reports whether n is the null NodeID (ns=0;i=0).
func (n NodeID) IsNull() bool {
	return n == NodeID{}
}

// String formats the NodeID in the standard text form, e.g. "i=85" or "ns=2;s=Room:1".
func (n NodeID) String() string {
	var b strings.Builder
	if n.ns != 0 {
		b.WriteString("ns=")
		b.WriteString(strconv.FormatUint(uint64(n.ns), 10))
		b.WriteByte(';')
	}
	b.WriteString(n.idType.String())
	b.WriteByte('=')
	switch n.idType {
	case IDTypeNumeric:
		b.WriteString(strconv.FormatUint(uint64(n.numeric), 10))
	case IDTypeString:
		b.WriteString(n.text)
	case IDTypeGUID:
		b.WriteString(n.guid.String())
	case IDTypeOpaque:
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(n.text)))
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NodeID) UnmarshalText(data []byte) error {
	id, err := ParseNodeID(string(data))
	if err != nil {
		return err
	}
	*n = id
	return nil
}

// ParseNodeID parses the standard text form of a NodeID.
// A bare integer is accepted as a numeric id in namespace 0.
func ParseNodeID(s string) (NodeID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NodeID{}, fmt.Errorf("%w: empty", ErrInvalidNodeID)
	}
	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		return NewNumericNodeID(0, uint32(v)), nil
	}

	var ns uint16
	rest := s
	if strings.HasPrefix(rest, "ns=") {
		idx := strings.IndexByte(rest, ';')
		if idx < 0 {
			return NodeID{}, fmt.Errorf("%w: %q missing identifier", ErrInvalidNodeID, s)
		}
		v, err := strconv.ParseUint(rest[3:idx], 10, 16)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q bad namespace: %v", ErrInvalidNodeID, s, err)
		}
		ns = uint16(v)
		rest = rest[idx+1:]
	}

	if len(rest) < 2 || rest[1] != '=' {
		return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}
	value := rest[2:]
	switch rest[0] {
	case 'i':
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q bad numeric identifier: %v", ErrInvalidNodeID, s, err)
		}
		return NewNumericNodeID(ns, uint32(v)), nil
	case 's':
		return NewStringNodeID(ns, value), nil
	case 'g':
		g, err := uuid.Parse(value)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q bad guid: %v", ErrInvalidNodeID, s, err)
		}
		return NewGUIDNodeID(ns, g), nil
	case 'b':
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q bad opaque identifier: %v", ErrInvalidNodeID, s, err)
		}
		return NewOpaqueNodeID(ns, raw), nil
	default:
		return NodeID{}, fmt.Errorf("%w: %q unknown identifier type %q", ErrInvalidNodeID, s, rest[0])
	}
}

// MustParseNodeID is like ParseNodeID but panics on error. Intended for tests
// and static tables.
func MustParseNodeID(s string) NodeID {
	id, err := ParseNodeID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ExpandedNodeID is a NodeID that may additionally carry a namespace URI
// and a server index, used as reference targets.
type ExpandedNodeID struct {
	NodeID       NodeID
	NamespaceURI string
	ServerIndex  uint32
}

// Expand wraps a local NodeID.
func Expand(id NodeID) ExpandedNodeID {
	return ExpandedNodeID{NodeID: id}
}

// IsLocal reports whether the id points at this server and uses an index
// rather than a namespace URI.
func (x ExpandedNodeID) IsLocal() bool {
	return x.ServerIndex == 0 && x.NamespaceURI == ""
}

// IsNull reports whether x carries no identifier at all.
func (x ExpandedNodeID) IsNull() bool {
	return x.NodeID.IsNull() && x.IsLocal()
}

// String formats the id, prefixing "svr=" and "nsu=" when present.
func (x ExpandedNodeID) String() string {
	if x.IsLocal() {
		return x.NodeID.String()
	}
	var b strings.Builder
	if x.ServerIndex != 0 {
		fmt.Fprintf(&b, "svr=%d;", x.ServerIndex)
	}
	if x.NamespaceURI != "" {
		b.WriteString("nsu=")
		b.WriteString(x.NamespaceURI)
		b.WriteByte(';')
		id := x.NodeID.WithNamespace(0)
		b.WriteString(id.String())
		return b.String()
	}
	b.WriteString(x.NodeID.String())
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (x ExpandedNodeID) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (x *ExpandedNodeID) UnmarshalText(data []byte) error {
	v, err := ParseExpandedNodeID(string(data))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

// ParseExpandedNodeID parses the text form produced by ExpandedNodeID.String.
func ParseExpandedNodeID(s string) (ExpandedNodeID, error) {
	var x ExpandedNodeID
	rest := strings.TrimSpace(s)
	if strings.HasPrefix(rest, "svr=") {
		idx := strings.IndexByte(rest, ';')
		if idx < 0 {
			return x, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
		}
		v, err := strconv.ParseUint(rest[4:idx], 10, 32)
		if err != nil {
			return x, fmt.Errorf("%w: %q bad server index: %v", ErrInvalidNodeID, s, err)
		}
		x.ServerIndex = uint32(v)
		rest = rest[idx+1:]
	}
	if strings.HasPrefix(rest, "nsu=") {
		// Namespace URIs may contain ';' so split on the last one.
		idx := strings.LastIndexByte(rest, ';')
		if idx < 4 {
			return x, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
		}
		x.NamespaceURI = rest[4:idx]
		rest = rest[idx+1:]
	}
	id, err := ParseNodeID(rest)
	if err != nil {
		return x, err
	}
	x.NodeID = id
	return x, nil
}
