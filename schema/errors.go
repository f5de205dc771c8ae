package schema

import "fmt"

// Error reports a malformed structural schema or an unresolvable
// reference inside one. Path identifies the offending node with a
// dotted field path; the root node has path "".
type Error struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
	return fmt.Sprintf("schema error at %q: %s", e.Path, e.Reason)
}

func newError(path, format string, args ...interface{}) *Error {
	return &Error{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// UnknownFieldError reports an access to a field name the schema does
// not declare.
type UnknownFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field: %s", e.Field)
}
