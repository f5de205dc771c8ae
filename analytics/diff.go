// Package analytics layers structural comparison and sampling-based
// field statistics on top of the descriptor tree. Summarize is the one
// place the system infers facts from data rather than from the schema.
package analytics

import (
	"reflect"
	"sort"

	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/validation"
)

// Absent marks a field present in one document and missing in the
// other. It is distinct from an explicit null value.
var Absent = absent{}

type absent struct{}

func (absent) String() string { return "<absent>" }

// IsAbsent reports whether v is the Absent marker.
func IsAbsent(v interface{}) bool {
	_, ok := v.(absent)
	return ok
}

// Change describes one differing field path.
type Change struct {
	Old         interface{}
	New         interface{}
	TypeChanged bool
}

// Diff recursively walks a and b along the union of their field paths.
// When strict is false, values are compared after coercion to the
// field's declared type, so 30 and "30" are equal for a numeric field.
// When strict is true the stored types must also match, and a type
// mismatch sets TypeChanged even when the coerced values are equal.
func Diff(a, b map[string]interface{}, desc *schema.Object, strict bool) map[string]Change {
	out := make(map[string]Change)
	diffObject("", a, b, desc, strict, out)
	return out
}

func diffObject(path string, a, b map[string]interface{}, desc *schema.Object, strict bool, out map[string]Change) {
	for _, key := range unionKeys(a, b, desc) {
		va, inA := a[key]
		vb, inB := b[key]
		p := joinPath(path, key)

		if !inA || !inB {
			c := Change{Old: Absent, New: Absent}
			if inA {
				c.Old = va
			}
			if inB {
				c.New = vb
			}
			out[p] = c
			continue
		}

		var fd schema.Descriptor
		if desc != nil {
			fd, _ = desc.Field(key)
		}

		// Recurse into object pairs so nested differences get precise
		// paths; everything else is compared as one value.
		ma, aIsMap := va.(map[string]interface{})
		mb, bIsMap := vb.(map[string]interface{})
		if aIsMap && bIsMap {
			child, _ := fd.(*schema.Object)
			diffObject(p, ma, mb, child, strict, out)
			continue
		}

		typeChanged := strict && !sameStoredType(va, vb)
		if !equalValues(va, vb, fd, strict) || typeChanged {
			out[p] = Change{Old: va, New: vb, TypeChanged: typeChanged}
		}
	}
}

// equalValues compares two values, coercing both to the declared kind
// when the field has a scalar descriptor and strict is off.
func equalValues(a, b interface{}, fd schema.Descriptor, strict bool) bool {
	switch d := fd.(type) {
	case *schema.Scalar:
		if strict && !sameStoredType(a, b) {
			return false
		}
		return validation.Equal(a, b, d.Type)

	case *schema.Array:
		sa, okA := a.([]interface{})
		sb, okB := b.([]interface{})
		if !okA || !okB || len(sa) != len(sb) {
			return reflect.DeepEqual(a, b)
		}
		for i := range sa {
			if !equalValues(sa[i], sb[i], d.Item, strict) {
				return false
			}
		}
		return true

	case *schema.Object:
		ma, okA := a.(map[string]interface{})
		mb, okB := b.(map[string]interface{})
		if !okA || !okB {
			return reflect.DeepEqual(a, b)
		}
		for _, key := range unionKeys(ma, mb, d) {
			va, inA := ma[key]
			vb, inB := mb[key]
			if inA != inB {
				return false
			}
			if !inA {
				continue
			}
			child, _ := d.Field(key)
			if !equalValues(va, vb, child, strict) {
				return false
			}
		}
		return true

	default:
		if strict {
			return reflect.DeepEqual(a, b)
		}
		return numericAwareEqual(a, b)
	}
}

func sameStoredType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// numericAwareEqual treats all numeric representations of the same
// value as equal, for fields the schema does not declare.
func numericAwareEqual(a, b interface{}) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
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

// unionKeys returns declared fields in declaration order followed by
// undeclared keys in sorted order, so diff output is deterministic.
func unionKeys(a, b map[string]interface{}, desc *schema.Object) []string {
	seen := make(map[string]struct{})
	var out []string

	if desc != nil {
		for _, name := range desc.Fields() {
			seen[name] = struct{}{}
			if _, inA := a[name]; inA {
				out = append(out, name)
				continue
			}
			if _, inB := b[name]; inB {
				out = append(out, name)
			}
		}
	}

	var extra []string
	for key := range a {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			extra = append(extra, key)
		}
	}
	for key := range b {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
