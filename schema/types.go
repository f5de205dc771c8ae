// Package schema provides type definitions and compilation for Vellum's
// document schema system. It turns a collection's structural validator
// document into an immutable descriptor tree that the proxy, validation,
// and persistence layers share.
package schema

import (
	"fmt"
	"regexp"
)

// Kind represents the primitive kind of a schema node.
type Kind int

const (
	// Scalar kinds
	KindString Kind = iota
	KindInteger
	KindNumber
	KindBool
	KindDate
	KindObjectID
	KindBinary
	KindNull

	// Composite kinds
	KindObject
	KindArray
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "int"
	case KindNumber:
		return "double"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindObjectID:
		return "objectId"
	case KindBinary:
		return "binData"
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// ParseKind converts a type name to a Kind. Both bsonType spellings
// ("int", "long", "double", "objectId") and JSON Schema spellings
// ("integer", "number", "boolean") are accepted.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "int", "long", "integer":
		return KindInteger, nil
	case "double", "decimal", "number":
		return KindNumber, nil
	case "bool", "boolean":
		return KindBool, nil
	case "date", "timestamp":
		return KindDate, nil
	case "objectId":
		return KindObjectID, nil
	case "binData":
		return KindBinary, nil
	case "null":
		return KindNull, nil
	case "object":
		return KindObject, nil
	case "array":
		return KindArray, nil
	default:
		return 0, fmt.Errorf("unknown type name: %s", s)
	}
}

// IsNumeric returns true if the kind is a numeric kind.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindNumber
}

// Descriptor is a node in the compiled descriptor tree. The tree is
// immutable once compiled and is shared read-only across any number of
// model instances.
type Descriptor interface {
	Kind() Kind
}

// Scalar describes a leaf field and its constraints. Pointer constraint
// fields are nil when the schema does not declare them.
type Scalar struct {
	Type      Kind
	Enum      []interface{}
	Minimum   *float64
	Maximum   *float64
	Pattern   *regexp.Regexp
	MinLength *int
	MaxLength *int
}

// Kind returns the scalar's primitive kind.
func (s *Scalar) Kind() Kind { return s.Type }

// Object describes a document node. Field order matches the schema's
// declaration order because serialization order is user observable.
type Object struct {
	names    []string
	fields   map[string]Descriptor
	required map[string]struct{}
}

// NewObject creates an empty object descriptor. It is exported for
// programmatic schema construction and tests; Compile is the usual path.
func NewObject() *Object {
	return &Object{
		fields:   make(map[string]Descriptor),
		required: make(map[string]struct{}),
	}
}

// Kind returns KindObject.
func (o *Object) Kind() Kind { return KindObject }

// Add appends a field descriptor, preserving insertion order. Adding a
// name twice replaces the descriptor but keeps the original position.
func (o *Object) Add(name string, d Descriptor) *Object {
	if _, exists := o.fields[name]; !exists {
		o.names = append(o.names, name)
	}
	o.fields[name] = d
	return o
}

// Require marks the given field names as required.
func (o *Object) Require(names ...string) *Object {
	for _, n := range names {
		o.required[n] = struct{}{}
	}
	return o
}

// Fields returns the field names in declaration order.
func (o *Object) Fields() []string {
	out := make([]string, len(o.names))
	copy(out, o.names)
	return out
}

// Field returns the descriptor for a field name.
func (o *Object) Field(name string) (Descriptor, bool) {
	d, ok := o.fields[name]
	return d, ok
}

// IsRequired returns true if the field is required.
func (o *Object) IsRequired(name string) bool {
	_, ok := o.required[name]
	return ok
}

// RequiredFields returns the required field names in declaration order.
func (o *Object) RequiredFields() []string {
	var out []string
	for _, n := range o.names {
		if o.IsRequired(n) {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of declared fields.
func (o *Object) Len() int { return len(o.names) }

// Array describes a sequence node and its item descriptor.
type Array struct {
	Item     Descriptor
	MinItems *int
	MaxItems *int
}

// Kind returns KindArray.
func (a *Array) Kind() Kind { return KindArray }
