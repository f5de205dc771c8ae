// Package model compiles a collection's structural schema into a
// runtime model: a value binding the descriptor tree, the collection
// handle, and a lifecycle hook registry. Model instances are document
// proxies pre-bound to that collection, carrying the persistence
// operations.
package model

import (
	"context"

	"github.com/vellumdb/vellum/document"
	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/store"
)

// SoftDeleteField is the reserved flag field soft deletion sets instead
// of removing the stored document.
const SoftDeleteField = "is_deleted"

// IDField is the reserved identifier field assigned on first save.
const IDField = "_id"

// Model is the compiled artifact for one (schema, collection) pair. The
// descriptor tree is immutable for the model's lifetime; recompiling a
// changed schema yields a new model, never mutates an existing one.
type Model struct {
	desc        *schema.Object
	coll        store.Collection
	hooks       *Hooks
	partialBulk bool
}

// Option configures a model at construction time.
type Option func(*Model)

// WithPartialBulkSave makes BulkSave persist the valid instances and
// report the failures together, instead of the default fail-fast abort.
func WithPartialBulkSave() Option {
	return func(m *Model) { m.partialBulk = true }
}

// GetModel reads the collection's declared structural schema, compiles
// it, and binds the result to the collection with a fresh hook
// registry. A collection without a schema fails with
// *SchemaMissingError. The call is idempotent for an unchanged schema;
// callers may cache the result keyed by collection identity.
func GetModel(ctx context.Context, coll store.Collection, opts ...Option) (*Model, error) {
	raw, err := coll.ValidatorSchema(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &SchemaMissingError{Collection: coll.Name()}
	}

	desc, err := schema.Compile(raw)
	if err != nil {
		return nil, err
	}

	m := &Model{desc: desc, coll: coll, hooks: NewHooks()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Descriptor returns the compiled root descriptor.
func (m *Model) Descriptor() *schema.Object { return m.desc }

// Collection returns the bound collection handle.
func (m *Model) Collection() store.Collection { return m.coll }

// Hooks returns the model's lifecycle hook registry.
func (m *Model) Hooks() *Hooks { return m.hooks }

// On registers a lifecycle callback; shorthand for Hooks().Register.
func (m *Model) On(event Event, fn HookFunc) {
	m.hooks.Register(event, fn)
}

// Instance is a document proxy bound to a model.
type Instance struct {
	*document.Document
	model *Model
}

// Model returns the model this instance is bound to.
func (i *Instance) Model() *Model { return i.model }

// ID returns the instance's identifier, or nil before the first save.
func (i *Instance) ID() interface{} {
	id, _ := i.Raw(IDField)
	return id
}

// New creates an empty instance.
func (m *Model) New() *Instance {
	return &Instance{Document: document.New(m.desc), model: m}
}

// FromMap hydrates an instance from a stored or external document. The
// data is deep-copied and validated lazily, so partial or legacy
// documents hydrate without being rejected.
func (m *Model) FromMap(data map[string]interface{}) *Instance {
	return &Instance{Document: document.FromMap(m.desc, data), model: m}
}
