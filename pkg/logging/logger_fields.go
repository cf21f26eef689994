package logging

import (
	"fmt"
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component names the subsystem emitting the entry.
func Component(name string) Field {
	return String("component", name)
}

// NodeID records a node identifier in its text form. Accepts anything
// with a String method so this package stays free of address-space types.
func NodeID(id fmt.Stringer) Field {
	return String("node_id", id.String())
}

// Target records a reference target identifier.
func Target(id fmt.Stringer) Field {
	return String("target_id", id.String())
}

// ReferenceType records a reference type identifier.
func ReferenceType(id fmt.Stringer) Field {
	return String("reference_type", id.String())
}

// Namespace records a namespace index.
func Namespace(index uint16) Field {
	return Field{Key: "namespace", Value: index}
}

// Element records a model-file element name.
func Element(name string) Field {
	return String("element", name)
}

// SymbolicName records the symbolic name of a model element or descriptor.
func SymbolicName(name string) Field {
	return String("symbolic_name", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
