// Package store defines the document-store collaborator boundary.
// Vellum's core never issues a raw network call itself; everything it
// needs from a store is expressed here and implemented by adapters such
// as mongostore and memstore.
//
// Filter, update-operator, and pipeline documents are passed through
// structurally: the core does not parse or validate operator syntax.
package store

import "context"

// Sort is one ordering rule: Order is 1 for ascending, -1 for
// descending.
type Sort struct {
	Field string
	Order int
}

// FindOptions carries the optional parts of a find call.
type FindOptions struct {
	Projection map[string]interface{}
	Sort       []Sort
	Limit      int64
	Skip       int64
}

// Collection is the per-collection contract a store adapter implements.
// Document arguments and results are plain maps; adapters own any
// conversion to their wire representation.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// ValidatorSchema returns the collection's declared structural
	// schema, or nil when the collection declares none.
	ValidatorSchema(ctx context.Context) (interface{}, error)

	// NewID generates a new document identifier.
	NewID() interface{}

	InsertOne(ctx context.Context, doc map[string]interface{}) error
	InsertMany(ctx context.Context, docs []map[string]interface{}) error
	ReplaceOne(ctx context.Context, filter, doc map[string]interface{}, upsert bool) error

	// BulkReplace applies insert-or-replace for every document, keyed
	// on _id, as a single batched call.
	BulkReplace(ctx context.Context, docs []map[string]interface{}) error

	// UpdateOne and UpdateMany return the number of documents actually
	// modified, not merely matched: an update that leaves a matching
	// document unchanged counts zero.
	UpdateOne(ctx context.Context, filter, update map[string]interface{}) (int64, error)
	UpdateMany(ctx context.Context, filter, update map[string]interface{}) (int64, error)

	// FindOneAndUpdate applies the update and returns the resulting
	// document, or nil when nothing matched.
	FindOneAndUpdate(ctx context.Context, filter, update map[string]interface{}) (map[string]interface{}, error)

	DeleteOne(ctx context.Context, filter map[string]interface{}) (int64, error)
	DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error)

	// FindOne returns the first matching document, or nil when nothing
	// matched; absence is not an error.
	FindOne(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error)
	Find(ctx context.Context, filter map[string]interface{}, opts FindOptions) ([]map[string]interface{}, error)

	Count(ctx context.Context, filter map[string]interface{}) (int64, error)
	Aggregate(ctx context.Context, pipeline []map[string]interface{}) ([]map[string]interface{}, error)
}

// Database hands out collections by name. The REST glue and CLI resolve
// their allow-listed collections through this.
type Database interface {
	Collection(name string) Collection
}
