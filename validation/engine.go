// Package validation implements Vellum's validation and coercion
// engine. Given a descriptor node and a candidate value it confirms the
// type, applies the permitted narrow coercions, and checks constraints,
// accumulating every violation instead of stopping at the first.
//
// The engine is pure: it never mutates its input and has no side
// effects.
package validation

import (
	"strconv"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vellumdb/vellum/schema"
)

// Result is the outcome of validating a value against a descriptor.
// Coerced holds the value after narrow coercions and is only meaningful
// when OK is true.
type Result struct {
	OK         bool
	Coerced    interface{}
	Violations []Violation
}

// Err returns the result's violations as an *Error, or nil when the
// validation passed.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return NewError(r.Violations)
}

// Validate checks value against desc. Object descriptors enforce their
// own required fields; a scalar write therefore never demands sibling
// fields, while validating a whole document does.
func Validate(value interface{}, desc schema.Descriptor) Result {
	var violations []Violation
	coerced := validateNode("", value, desc, &violations)
	return Result{
		OK:         len(violations) == 0,
		Coerced:    coerced,
		Violations: violations,
	}
}

// Coerce applies the engine's narrow coercions for a scalar kind.
func Coerce(value interface{}, kind schema.Kind) (interface{}, bool) {
	return coerce(value, kind)
}

// Equal compares two values after coercing both to the given kind, so
// 30 and "30" are equal for a numeric kind.
func Equal(a, b interface{}, kind schema.Kind) bool {
	return looseEqual(a, b, kind)
}

func validateNode(path string, value interface{}, desc schema.Descriptor, out *[]Violation) interface{} {
	switch d := desc.(type) {
	case *schema.Object:
		return validateObject(path, value, d, out)
	case *schema.Array:
		return validateArray(path, value, d, out)
	case *schema.Scalar:
		return validateScalar(path, value, d, out)
	default:
		*out = append(*out, Violation{FieldPath: path, Rule: RuleType, Expected: "known descriptor", Actual: value})
		return value
	}
}

func validateScalar(path string, value interface{}, s *schema.Scalar, out *[]Violation) interface{} {
	coerced, ok := coerce(value, s.Type)
	if !ok {
		*out = append(*out, Violation{FieldPath: path, Rule: RuleType, Expected: s.Type.String(), Actual: value})
		return value
	}

	if len(s.Enum) > 0 && !enumMember(coerced, s) {
		*out = append(*out, Violation{FieldPath: path, Rule: RuleEnum, Expected: s.Enum, Actual: value})
	}

	if s.Type.IsNumeric() {
		f, _ := numericValue(coerced)
		if s.Minimum != nil && f < *s.Minimum {
			*out = append(*out, Violation{FieldPath: path, Rule: RuleMinimum, Expected: *s.Minimum, Actual: value})
		}
		if s.Maximum != nil && f > *s.Maximum {
			*out = append(*out, Violation{FieldPath: path, Rule: RuleMaximum, Expected: *s.Maximum, Actual: value})
		}
	}

	if str, isStr := coerced.(string); isStr {
		length := utf8.RuneCountInString(str)
		if s.MinLength != nil && length < *s.MinLength {
			*out = append(*out, Violation{FieldPath: path, Rule: RuleMinLength, Expected: *s.MinLength, Actual: length})
		}
		if s.MaxLength != nil && length > *s.MaxLength {
			*out = append(*out, Violation{FieldPath: path, Rule: RuleMaxLength, Expected: *s.MaxLength, Actual: length})
		}
		if s.Pattern != nil && !s.Pattern.MatchString(str) {
			*out = append(*out, Violation{FieldPath: path, Rule: RulePattern, Expected: s.Pattern.String(), Actual: str})
		}
	}

	return coerced
}

func enumMember(value interface{}, s *schema.Scalar) bool {
	for _, allowed := range s.Enum {
		if looseEqual(value, allowed, s.Type) {
			return true
		}
	}
	return false
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func validateObject(path string, value interface{}, obj *schema.Object, out *[]Violation) interface{} {
	m, ok := asMap(value)
	if !ok {
		*out = append(*out, Violation{FieldPath: path, Rule: RuleType, Expected: "object", Actual: value})
		return value
	}

	// Required checks key presence only; an explicit null is present
	// and left to the type rule.
	for _, name := range obj.RequiredFields() {
		if _, present := m[name]; !present {
			*out = append(*out, Violation{FieldPath: childPath(path, name), Rule: RuleRequired, Expected: name, Actual: nil})
		}
	}

	// Undeclared keys (reserved fields such as _id and the soft-delete
	// flag) ride along uncoerced.
	coerced := make(map[string]interface{}, len(m))
	for k, v := range m {
		coerced[k] = v
	}
	for _, name := range obj.Fields() {
		v, present := m[name]
		if !present {
			continue
		}
		fd, _ := obj.Field(name)
		coerced[name] = validateNode(childPath(path, name), v, fd, out)
	}
	return coerced
}

func validateArray(path string, value interface{}, arr *schema.Array, out *[]Violation) interface{} {
	items, ok := asSlice(value)
	if !ok {
		*out = append(*out, Violation{FieldPath: path, Rule: RuleType, Expected: "array", Actual: value})
		return value
	}

	if arr.MinItems != nil && len(items) < *arr.MinItems {
		*out = append(*out, Violation{FieldPath: path, Rule: RuleMinItems, Expected: *arr.MinItems, Actual: len(items)})
	}
	if arr.MaxItems != nil && len(items) > *arr.MaxItems {
		*out = append(*out, Violation{FieldPath: path, Rule: RuleMaxItems, Expected: *arr.MaxItems, Actual: len(items)})
	}

	coerced := make([]interface{}, len(items))
	for i, item := range items {
		coerced[i] = validateNode(indexPath(path, i), item, arr.Item, out)
	}
	return coerced
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case primitive.M:
		return m, true
	case primitive.D:
		out := make(map[string]interface{}, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case primitive.A:
		return s, true
	default:
		return nil, false
	}
}

func childPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return childPath(path, strconv.Itoa(i))
}
