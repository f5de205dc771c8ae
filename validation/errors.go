package validation

import (
	"fmt"
	"strings"
)

// Rule names used in violations, in evaluation order.
const (
	RuleType      = "type"
	RuleRequired  = "required"
	RuleEnum      = "enum"
	RuleMinimum   = "minimum"
	RuleMaximum   = "maximum"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleMinItems  = "minItems"
	RuleMaxItems  = "maxItems"
)

// Violation describes a single failed rule at a field path.
type Violation struct {
	FieldPath string      `json:"fieldPath"`
	Rule      string      `json:"rule"`
	Expected  interface{} `json:"expected"`
	Actual    interface{} `json:"actual"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (expected %v, got %v)", v.FieldPath, v.Rule, v.Expected, v.Actual)
}

// Error carries the complete violation set for a failed validation.
// A single pass surfaces everything wrong with a write, never just the
// first failing rule.
type Error struct {
	Violations []Violation `json:"violations"`
}

// NewError wraps a violation set into an Error.
func NewError(violations []Violation) *Error {
	return &Error{Violations: violations}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	if len(e.Violations) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Violations[0])
	}
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "  - "+v.String())
	}
	return fmt.Sprintf("validation failed:\n%s", strings.Join(lines, "\n"))
}

// Count returns the number of violations.
func (e *Error) Count() int { return len(e.Violations) }
