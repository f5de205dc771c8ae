package schema

import (
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultMaxDepth bounds schema nesting. Validator documents come from
// the store and may be hostile; compilation fails rather than recursing
// past this bound.
const DefaultMaxDepth = 32

// Compile walks a structural validator document and produces the root
// object descriptor. The document may be a $jsonSchema wrapper or the
// schema body itself, expressed as bson.D (order preserving), bson.M,
// or a plain map.
//
// Compilation is deterministic: the same document always yields a
// structurally equal tree. Ordered documents keep their declaration
// order; unordered maps fall back to sorted field order.
func Compile(doc interface{}) (*Object, error) {
	return CompileLimit(doc, DefaultMaxDepth)
}

// CompileLimit is Compile with an explicit nesting bound.
func CompileLimit(doc interface{}, maxDepth int) (*Object, error) {
	body := doc
	if fields, ok := asDocument(doc); ok {
		for _, f := range fields {
			if f.name == "$jsonSchema" {
				body = f.value
				break
			}
		}
	}

	d, err := compileNode(body, "", 0, maxDepth)
	if err != nil {
		return nil, err
	}
	obj, ok := d.(*Object)
	if !ok {
		return nil, newError("", "root node must be an object, got %s", d.Kind())
	}
	return obj, nil
}

// docField is one key/value pair of a normalized schema document.
type docField struct {
	name  string
	value interface{}
}

// asDocument normalizes the supported document representations into an
// ordered field list. Plain maps are sorted by name so that compiling
// the same schema twice yields structurally equal trees.
func asDocument(v interface{}) ([]docField, bool) {
	switch doc := v.(type) {
	case primitive.D:
		out := make([]docField, 0, len(doc))
		for _, e := range doc {
			out = append(out, docField{name: e.Key, value: e.Value})
		}
		return out, true
	case primitive.M:
		return sortedFields(doc), true
	case map[string]interface{}:
		return sortedFields(doc), true
	default:
		return nil, false
	}
}

func sortedFields(m map[string]interface{}) []docField {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]docField, 0, len(m))
	for _, name := range names {
		out = append(out, docField{name: name, value: m[name]})
	}
	return out
}

func lookup(fields []docField, name string) (interface{}, bool) {
	for _, f := range fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

func compileNode(node interface{}, path string, depth, maxDepth int) (Descriptor, error) {
	if depth > maxDepth {
		return nil, newError(path, "nesting depth exceeds bound of %d", maxDepth)
	}

	fields, ok := asDocument(node)
	if !ok {
		return nil, newError(path, "schema node is not a document (got %T)", node)
	}

	kind, err := nodeKind(fields, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindObject:
		return compileObject(fields, path, depth, maxDepth)
	case KindArray:
		return compileArray(fields, path, depth, maxDepth)
	default:
		return compileScalar(fields, kind, path)
	}
}

// nodeKind resolves the declared type of a node. A node with properties
// but no declared type is treated as an object, matching the common
// $jsonSchema convention of omitting bsonType at the root.
func nodeKind(fields []docField, path string) (Kind, error) {
	raw, ok := lookup(fields, "bsonType")
	if !ok {
		raw, ok = lookup(fields, "type")
	}
	if !ok {
		if _, hasProps := lookup(fields, "properties"); hasProps {
			return KindObject, nil
		}
		return 0, newError(path, "node lacks a resolvable type")
	}

	name, err := typeName(raw)
	if err != nil {
		return 0, newError(path, "%v", err)
	}
	kind, err := ParseKind(name)
	if err != nil {
		return 0, newError(path, "%v", err)
	}
	return kind, nil
}

// typeName extracts a single type name. Type lists such as
// ["string", "null"] resolve to their first non-null entry.
func typeName(raw interface{}) (string, error) {
	switch t := raw.(type) {
	case string:
		return t, nil
	case []interface{}, primitive.A:
		var items []interface{}
		if a, ok := t.(primitive.A); ok {
			items = a
		} else {
			items = t.([]interface{})
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("type list entry is not a string (got %T)", item)
			}
			if s != "null" {
				return s, nil
			}
		}
		if len(items) > 0 {
			return "null", nil
		}
		return "", fmt.Errorf("empty type list")
	default:
		return "", fmt.Errorf("type is not a string (got %T)", raw)
	}
}

func compileObject(fields []docField, path string, depth, maxDepth int) (*Object, error) {
	obj := NewObject()

	if rawProps, ok := lookup(fields, "properties"); ok {
		props, ok := asDocument(rawProps)
		if !ok {
			return nil, newError(path, "properties is not a document (got %T)", rawProps)
		}
		for _, prop := range props {
			child, err := compileNode(prop.value, childPath(path, prop.name), depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			obj.Add(prop.name, child)
		}
	}

	if rawReq, ok := lookup(fields, "required"); ok {
		names, err := stringList(rawReq)
		if err != nil {
			return nil, newError(path, "required: %v", err)
		}
		for _, name := range names {
			if _, declared := obj.Field(name); !declared {
				return nil, newError(path, "required references undeclared field %q", name)
			}
			obj.Require(name)
		}
	}

	return obj, nil
}

func compileArray(fields []docField, path string, depth, maxDepth int) (*Array, error) {
	rawItems, ok := lookup(fields, "items")
	if !ok {
		return nil, newError(path, "array node lacks an item type")
	}
	item, err := compileNode(rawItems, childPath(path, "[]"), depth+1, maxDepth)
	if err != nil {
		return nil, err
	}

	arr := &Array{Item: item}
	if arr.MinItems, err = intConstraint(fields, "minItems", path); err != nil {
		return nil, err
	}
	if arr.MaxItems, err = intConstraint(fields, "maxItems", path); err != nil {
		return nil, err
	}
	return arr, nil
}

func compileScalar(fields []docField, kind Kind, path string) (*Scalar, error) {
	s := &Scalar{Type: kind}
	var err error

	if raw, ok := lookup(fields, "enum"); ok {
		switch e := raw.(type) {
		case []interface{}:
			s.Enum = e
		case primitive.A:
			s.Enum = []interface{}(e)
		default:
			return nil, newError(path, "enum is not a list (got %T)", raw)
		}
	}

	if s.Minimum, err = numConstraint(fields, "minimum", path); err != nil {
		return nil, err
	}
	if s.Maximum, err = numConstraint(fields, "maximum", path); err != nil {
		return nil, err
	}
	if s.MinLength, err = intConstraint(fields, "minLength", path); err != nil {
		return nil, err
	}
	if s.MaxLength, err = intConstraint(fields, "maxLength", path); err != nil {
		return nil, err
	}

	if raw, ok := lookup(fields, "pattern"); ok {
		str, isStr := raw.(string)
		if !isStr {
			return nil, newError(path, "pattern is not a string (got %T)", raw)
		}
		re, reErr := regexp.Compile(str)
		if reErr != nil {
			return nil, newError(path, "invalid pattern: %v", reErr)
		}
		s.Pattern = re
	}

	return s, nil
}

func numConstraint(fields []docField, name, path string) (*float64, error) {
	raw, ok := lookup(fields, name)
	if !ok {
		return nil, nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return nil, newError(path, "%s is not numeric (got %T)", name, raw)
	}
	return &f, nil
}

func intConstraint(fields []docField, name, path string) (*int, error) {
	raw, ok := lookup(fields, name)
	if !ok {
		return nil, nil
	}
	f, ok := toFloat(raw)
	if !ok || f != float64(int(f)) {
		return nil, newError(path, "%s is not an integer (got %v)", name, raw)
	}
	n := int(f)
	return &n, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringList(raw interface{}) ([]string, error) {
	var items []interface{}
	switch l := raw.(type) {
	case []interface{}:
		items = l
	case primitive.A:
		items = l
	case []string:
		return l, nil
	default:
		return nil, fmt.Errorf("not a list (got %T)", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("entry is not a string (got %T)", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func childPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
