package model

import "fmt"

// SchemaMissingError reports a collection that declares no structural
// schema. Model compilation has nothing to validate against, so this is
// a hard precondition, not a soft default.
type SchemaMissingError struct {
	Collection string
}

// Error implements the error interface.
func (e *SchemaMissingError) Error() string {
	return fmt.Sprintf("collection %q declares no structural schema", e.Collection)
}
