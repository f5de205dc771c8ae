// Package document implements Vellum's live document and array proxies.
// A proxy wraps a backing map and enforces the compiled schema on every
// field access. The root document owns the backing map; child proxies
// hold a structural path into it and always read and write through the
// root, so a write on a nested proxy is visible on the parent.
package document

import (
	"strings"

	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/validation"
)

// Unset is returned when a declared scalar field has no value yet.
// Absence of a value is not an error.
var Unset = unset{}

type unset struct{}

func (unset) String() string { return "<unset>" }

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v interface{}) bool {
	_, ok := v.(unset)
	return ok
}

// Document is a live, mutable view over a backing map bound to an
// object descriptor. Documents are not safe for uncoordinated
// concurrent mutation; callers serialize at a higher layer.
type Document struct {
	root *Document
	path []interface{}
	desc *schema.Object

	// Root only.
	data  map[string]interface{}
	dirty bool
}

// New creates an empty root document for the descriptor.
func New(desc *schema.Object) *Document {
	return &Document{desc: desc, data: make(map[string]interface{})}
}

// FromMap creates a root document whose backing map is a deep copy of
// data. The copy is normalized (bson document and array representations
// become plain maps and slices) and validated lazily: only subsequent
// writes are checked, so partial or legacy documents hydrate without
// being rejected.
func FromMap(desc *schema.Object, data map[string]interface{}) *Document {
	return &Document{desc: desc, data: deepCopyMap(data)}
}

// Descriptor returns the object descriptor this document is bound to.
func (d *Document) Descriptor() *schema.Object { return d.desc }

// Root returns the root ancestor of this document.
func (d *Document) Root() *Document {
	if d.root == nil {
		return d
	}
	return d.root
}

// Dirty reports whether any field of the document tree has been written
// since creation, hydration, or the last ClearDirty.
func (d *Document) Dirty() bool { return d.Root().dirty }

// ClearDirty resets the dirty flag, typically after a successful save.
func (d *Document) ClearDirty() { d.Root().dirty = false }

func (d *Document) markDirty() { d.Root().dirty = true }

// Get reads a declared field.
//
// For a nested object field that is absent, Get materializes an empty
// map in the backing map and returns a child proxy over it. This
// happens even on a pure read: traversing person.health creates
// health: {} as a side effect. For array fields it returns an *Array
// view. For an absent scalar it returns Unset. Undeclared names fail
// with *schema.UnknownFieldError.
func (d *Document) Get(field string) (interface{}, error) {
	fd, ok := d.desc.Field(field)
	if !ok {
		return nil, &schema.UnknownFieldError{Field: field}
	}

	switch t := fd.(type) {
	case *schema.Object:
		m := d.resolveCreate()
		if _, present := m[field]; !present {
			m[field] = make(map[string]interface{})
		}
		return &Document{
			root: d.Root(),
			path: d.pathTo(field),
			desc: t,
		}, nil

	case *schema.Array:
		return &Array{parent: d, field: field, desc: t}, nil

	default:
		m := d.resolveRead()
		if m == nil {
			return Unset, nil
		}
		v, present := m[field]
		if !present {
			return Unset, nil
		}
		return v, nil
	}
}

// GetPath traverses a dotted path of declared fields, returning the
// same results Get would at the leaf. Intermediate segments must name
// object fields.
func (d *Document) GetPath(path string) (interface{}, error) {
	segments := strings.Split(path, ".")
	cur := d
	for i, seg := range segments {
		v, err := cur.Get(seg)
		if err != nil {
			return nil, err
		}
		if i == len(segments)-1 {
			return v, nil
		}
		child, ok := v.(*Document)
		if !ok {
			return nil, &UsageError{Msg: "path segment " + seg + " is not an object field"}
		}
		cur = child
	}
	return cur, nil
}

// Set validates value against the field's descriptor and stores the
// coerced result. On failure it returns a *validation.Error carrying
// the complete violation set and leaves the backing map unmodified;
// the write is all-or-nothing per field.
func (d *Document) Set(field string, value interface{}) error {
	fd, ok := d.desc.Field(field)
	if !ok {
		return &schema.UnknownFieldError{Field: field}
	}

	res := validation.Validate(unwrap(value), fd)
	if !res.OK {
		return validation.NewError(res.Violations)
	}

	m := d.resolveCreate()
	m[field] = res.Coerced
	d.markDirty()
	return nil
}

// Has reports whether a declared field currently holds a value. Unlike
// Get it never materializes anything.
func (d *Document) Has(field string) bool {
	if _, declared := d.desc.Field(field); !declared {
		return false
	}
	m := d.resolveRead()
	if m == nil {
		return false
	}
	_, present := m[field]
	return present
}

// Raw reads a field from the backing map without schema mediation and
// without materializing anything. The persistence layer uses it for
// reserved bookkeeping fields the schema does not declare, such as the
// identifier and the soft-delete flag.
func (d *Document) Raw(field string) (interface{}, bool) {
	m := d.resolveRead()
	if m == nil {
		return nil, false
	}
	v, ok := m[field]
	return v, ok
}

// SetRaw writes a reserved bookkeeping field, bypassing validation. It
// does not mark the document dirty.
func (d *Document) SetRaw(field string, v interface{}) {
	d.resolveCreate()[field] = v
}

// ToMap recursively unwraps the document into a plain map. It is pure:
// repeated calls return equal, independent copies and never touch the
// backing map.
func (d *Document) ToMap() map[string]interface{} {
	m := d.resolveRead()
	if m == nil {
		return make(map[string]interface{})
	}
	return deepCopyMap(m)
}

// pathTo returns a copy of this document's path extended with a step.
func (d *Document) pathTo(step interface{}) []interface{} {
	out := make([]interface{}, 0, len(d.path)+1)
	out = append(out, d.path...)
	out = append(out, step)
	return out
}

// resolveRead walks the root's backing map along this document's path.
// It returns nil when the path does not lead to a map, so reads on
// stale or legacy-shaped subtrees see absence rather than failing.
func (d *Document) resolveRead() map[string]interface{} {
	cur := interface{}(d.Root().data)
	for _, step := range d.path {
		switch s := step.(type) {
		case string:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil
			}
			cur, ok = m[s]
			if !ok {
				return nil
			}
		case int:
			seq, ok := cur.([]interface{})
			if !ok || s < 0 || s >= len(seq) {
				return nil
			}
			cur = seq[s]
		}
	}
	m, _ := cur.(map[string]interface{})
	return m
}

// resolveCreate walks the path like resolveRead but materializes
// missing intermediate maps, so that writes through a child proxy land
// in the root's backing map. A child whose array element no longer
// exists resolves to a detached map; its writes are lost, matching the
// stale-proxy semantics of a removed element.
func (d *Document) resolveCreate() map[string]interface{} {
	var cur interface{} = d.Root().data
	for _, step := range d.path {
		switch s := step.(type) {
		case string:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return make(map[string]interface{})
			}
			switch m[s].(type) {
			case map[string]interface{}, []interface{}:
			default:
				m[s] = make(map[string]interface{})
			}
			cur = m[s]
		case int:
			seq, ok := cur.([]interface{})
			if !ok || s < 0 || s >= len(seq) {
				return make(map[string]interface{})
			}
			cur = seq[s]
		}
	}
	m, ok := cur.(map[string]interface{})
	if !ok {
		return make(map[string]interface{})
	}
	return m
}

// unwrap converts proxy values back to plain data before validation.
func unwrap(v interface{}) interface{} {
	switch p := v.(type) {
	case *Document:
		return p.ToMap()
	case *Array:
		return p.ToSlice()
	default:
		return v
	}
}
