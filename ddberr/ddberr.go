// Package ddberr defines the error taxonomy described in spec.md §7: every
// error surfaced across the codec, structure, logic and facade layers is one
// of a small set of typed errors, so callers can distinguish "malformed
// input" from "storage invariant violated" from "underlying engine failure"
// with errors.As.
package ddberr

import "fmt"

// FormatError reports that a document, path or condition was malformed
// before it ever reached storage (e.g. an unsupported scalar type, a
// wildcard in a search condition's field, a malformed request).
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "format: " + e.Reason }

// NewFormat builds a FormatError, formatting its reason like fmt.Sprintf.
func NewFormat(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// StructureError reports a violation of the Structure Layer's invariants:
// type-mixing on a path prefix, an insert into a path that is not a list,
// or a specification row that is missing or cannot be decoded.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string { return "structure: " + e.Reason }

// NewStructure builds a StructureError, formatting its reason like fmt.Sprintf.
func NewStructure(format string, args ...any) *StructureError {
	return &StructureError{Reason: fmt.Sprintf(format, args...)}
}

// LogicError reports a request that is well-formed but cannot be honored
// given the object's current contents (e.g. a read of an object that does
// not exist, or of a path or mask under which nothing is stored).
type LogicError struct {
	Reason string
}

func (e *LogicError) Error() string { return "logic: " + e.Reason }

// NewLogic builds a LogicError, formatting its reason like fmt.Sprintf.
func NewLogic(format string, args ...any) *LogicError {
	return &LogicError{Reason: fmt.Sprintf(format, args...)}
}

// FacadeError reports a problem at the outermost API surface: a
// transaction begun, committed or rolled back in the wrong state, an
// unknown dialect, or an unknown session id.
type FacadeError struct {
	Reason string
}

func (e *FacadeError) Error() string { return "facade: " + e.Reason }

// NewFacade builds a FacadeError, formatting its reason like fmt.Sprintf.
func NewFacade(format string, args ...any) *FacadeError {
	return &FacadeError{Reason: fmt.Sprintf(format, args...)}
}

// EngineError wraps a failure reported by the underlying SQL engine
// (connection loss, constraint violation, syntax error from a
// dialect-specific quirk). Cause is always non-nil and unwraps with
// errors.Unwrap/errors.Is.
type EngineError struct {
	Cause error
}

func (e *EngineError) Error() string { return "engine: " + e.Cause.Error() }

func (e *EngineError) Unwrap() error { return e.Cause }

// WrapEngine wraps err as an EngineError, returning nil if err is nil.
func WrapEngine(err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Cause: err}
}
