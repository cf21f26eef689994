package addressspace

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNamespaceInUse     = errors.New("namespace index already bound")
	ErrNamespaceURIInUse  = errors.New("namespace uri already bound")
	ErrNilBackend         = errors.New("backend is nil")
	ErrDuplicateNode      = errors.New("node id already present")
	ErrPartitionViolation = errors.New("node id outside the backend's namespace")
	ErrFrozen             = errors.New("address space is frozen")
	ErrBackendFault       = errors.New("backend fault")
)

// Error provides structured information about a failed address space
// operation.
type Error struct {
	Op        string // Operation that failed (e.g. "Bind", "Freeze", "References")
	Namespace int    // Namespace index, -1 when not applicable
	NodeID    string // Node identifier in text form
	Cause     error
	Context   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "addressspace." + e.Op
	if e.Namespace >= 0 {
		msg += fmt.Sprintf(" ns=%d", e.Namespace)
	}
	if e.NodeID != "" {
		msg += " node " + e.NodeID
	}
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg + ": " + fmt.Sprint(e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder for the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op, Namespace: -1}}
}

// Namespace sets the namespace index.
func (b *ErrorBuilder) Namespace(ns uint16) *ErrorBuilder {
	b.err.Namespace = int(ns)
	return b
}

// Node sets the node identifier.
func (b *ErrorBuilder) Node(id fmt.Stringer) *ErrorBuilder {
	b.err.NodeID = id.String()
	return b
}

// Context adds free-form context.
func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Wrap sets the cause and returns the built error.
func (b *ErrorBuilder) Wrap(cause error) error {
	b.err.Cause = cause
	e := b.err
	return &e
}

// IsBackendFault reports whether err came from a failing backend.
func IsBackendFault(err error) bool {
	return errors.Is(err, ErrBackendFault)
}
