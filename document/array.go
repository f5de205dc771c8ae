package document

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/validation"
)

// Array is a live, mutable sequence view bound to an array descriptor.
// Like Document it reads and writes through the root's backing map.
// The backing sequence is materialized on the first Add, not on read.
type Array struct {
	parent *Document
	field  string
	desc   *schema.Array
}

// Descriptor returns the array descriptor this view is bound to.
func (a *Array) Descriptor() *schema.Array { return a.desc }

// Len returns the length of the backing sequence.
func (a *Array) Len() int {
	return len(a.items())
}

// At returns the element at index i, wrapped as a *Document when the
// item type is an object.
func (a *Array) At(i int) (interface{}, error) {
	items := a.items()
	if i < 0 || i >= len(items) {
		return nil, &UsageError{Msg: fmt.Sprintf("index %d out of range (len %d)", i, len(items))}
	}
	if obj, ok := a.desc.Item.(*schema.Object); ok {
		return &Document{
			root: a.parent.Root(),
			path: append(a.parent.pathTo(a.field), i),
			desc: obj,
		}, nil
	}
	return items[i], nil
}

// Add appends items to the sequence. Two argument forms are accepted
// for object item types:
//
//	arr.Add(map[string]interface{}{"street": "Main St"}, ...)   // whole items
//	arr.Add("street", "Main St", "zip", "02134")                // field pairs, one item
//
// The pair form follows the keysAndValues convention: alternating
// string keys and values describing a single element. Mixing the two
// forms in one call fails with *UsageError. For scalar item types every
// argument is one element.
//
// Every item is validated against the item descriptor before the
// sequence is mutated; a rejected item leaves the sequence unchanged.
// Item count bounds are checked at save time, not per append.
func (a *Array) Add(args ...interface{}) error {
	if len(args) == 0 {
		return &UsageError{Msg: "Add requires at least one argument"}
	}

	items, err := a.collectItems(args)
	if err != nil {
		return err
	}

	// Validate everything first so a failure mutates nothing.
	base := a.Len()
	var violations []validation.Violation
	coerced := make([]interface{}, 0, len(items))
	for i, item := range items {
		res := validation.Validate(unwrap(item), a.desc.Item)
		if !res.OK {
			violations = append(violations, prefixViolations(res.Violations, strconv.Itoa(base+i))...)
			continue
		}
		coerced = append(coerced, res.Coerced)
	}
	if len(violations) > 0 {
		return validation.NewError(violations)
	}

	m := a.parent.resolveCreate()
	seq, _ := m[a.field].([]interface{})
	m[a.field] = append(seq, coerced...)
	a.parent.markDirty()
	return nil
}

// collectItems resolves the argument forms into a list of items.
func (a *Array) collectItems(args []interface{}) ([]interface{}, error) {
	if _, objectItems := a.desc.Item.(*schema.Object); !objectItems {
		return args, nil
	}

	if isItemMap(args[0]) {
		for _, arg := range args {
			if !isItemMap(arg) {
				return nil, &UsageError{Msg: "cannot mix whole items and field pairs in one Add call"}
			}
		}
		return args, nil
	}

	if _, isKey := args[0].(string); isKey {
		if len(args)%2 != 0 {
			return nil, &UsageError{Msg: "field pair form requires an even number of arguments"}
		}
		item := make(map[string]interface{}, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			key, ok := args[i].(string)
			if !ok {
				return nil, &UsageError{Msg: "cannot mix whole items and field pairs in one Add call"}
			}
			item[key] = args[i+1]
		}
		return []interface{}{item}, nil
	}

	return nil, &UsageError{Msg: fmt.Sprintf("argument %T is neither an item map nor a field key", args[0])}
}

func isItemMap(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, primitive.M, primitive.D, *Document:
		return true
	default:
		return false
	}
}

// ToSlice returns a deep copy of the backing sequence.
func (a *Array) ToSlice() []interface{} {
	items := a.items()
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = deepCopyValue(item)
	}
	return out
}

func (a *Array) items() []interface{} {
	m := a.parent.resolveRead()
	if m == nil {
		return nil
	}
	seq, _ := m[a.field].([]interface{})
	return seq
}

func prefixViolations(violations []validation.Violation, prefix string) []validation.Violation {
	out := make([]validation.Violation, len(violations))
	for i, v := range violations {
		if v.FieldPath == "" {
			v.FieldPath = prefix
		} else {
			v.FieldPath = prefix + "." + v.FieldPath
		}
		out[i] = v
	}
	return out
}
