// Package memstore is an in-memory implementation of the store
// collaborator boundary. It backs the test suite and embedded use, and
// interprets the common operator subset a document store accepts:
// $eq/$ne/$gt/$gte/$lt/$lte/$in/$nin/$exists/$regex/$and/$or/$text for
// filters, $set/$unset/$inc for updates, and
// $match/$sample/$skip/$limit/$sort/$project/$count pipeline stages.
package memstore

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vellumdb/vellum/store"
)

// Store holds named in-memory collections, created on demand.
type Store struct {
	mu    sync.Mutex
	colls map[string]*Collection
}

// New creates an empty store.
func New() *Store {
	return &Store{colls: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it if needed.
func (s *Store) Collection(name string) store.Collection {
	return s.collection(name)
}

// SetValidator declares a structural schema for a collection, standing
// in for a real deployment's collection validator.
func (s *Store) SetValidator(name string, validator interface{}) {
	s.collection(name).setValidator(validator)
}

func (s *Store) collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colls[name]
	if !ok {
		c = &Collection{name: name}
		s.colls[name] = c
	}
	return c
}

// Collection is one in-memory document collection.
type Collection struct {
	name      string
	mu        sync.RWMutex
	validator interface{}
	docs      []map[string]interface{}
}

func (c *Collection) setValidator(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validator = v
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// ValidatorSchema returns the declared schema, or nil when none is set.
func (c *Collection) ValidatorSchema(ctx context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validator, nil
}

// NewID generates a UUID identifier.
func (c *Collection) NewID() interface{} {
	return uuid.NewString()
}

func (c *Collection) InsertOne(ctx context.Context, doc map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, copyDoc(doc))
	return nil
}

func (c *Collection) InsertMany(ctx context.Context, docs []map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		c.docs = append(c.docs, copyDoc(doc))
	}
	return nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter, doc map[string]interface{}, upsert bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.docs {
		if matches(existing, filter) {
			c.docs[i] = copyDoc(doc)
			return nil
		}
	}
	if upsert {
		c.docs = append(c.docs, copyDoc(doc))
	}
	return nil
}

func (c *Collection) BulkReplace(ctx context.Context, docs []map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		replaced := false
		for i, existing := range c.docs {
			if looseEqual(existing["_id"], doc["_id"]) {
				c.docs[i] = copyDoc(doc)
				replaced = true
				break
			}
		}
		if !replaced {
			c.docs = append(c.docs, copyDoc(doc))
		}
	}
	return nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update map[string]interface{}) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		if matches(doc, filter) {
			changed, err := applyUpdate(doc, update)
			if err != nil {
				return 0, err
			}
			if changed {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update map[string]interface{}) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			changed, err := applyUpdate(doc, update)
			if err != nil {
				return n, err
			}
			if changed {
				n++
			}
		}
	}
	return n, nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter, update map[string]interface{}) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		if matches(doc, filter) {
			if _, err := applyUpdate(doc, update); err != nil {
				return nil, err
			}
			return copyDoc(doc), nil
		}
	}
	return nil, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter map[string]interface{}) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, doc := range c.docs {
		if matches(doc, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []map[string]interface{}
	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			n++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return n, nil
}

func (c *Collection) FindOne(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if matches(doc, filter) {
			return copyDoc(doc), nil
		}
	}
	return nil, nil
}

func (c *Collection) Find(ctx context.Context, filter map[string]interface{}, opts store.FindOptions) ([]map[string]interface{}, error) {
	c.mu.RLock()
	var out []map[string]interface{}
	for _, doc := range c.docs {
		if matches(doc, filter) {
			out = append(out, copyDoc(doc))
		}
	}
	c.mu.RUnlock()

	sortDocs(out, opts.Sort)

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(out)) {
			out = nil
		} else {
			out = out[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	if len(opts.Projection) > 0 {
		for i, doc := range out {
			out[i] = project(doc, opts.Projection)
		}
	}
	return out, nil
}

func (c *Collection) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) Aggregate(ctx context.Context, pipeline []map[string]interface{}) ([]map[string]interface{}, error) {
	c.mu.RLock()
	docs := make([]map[string]interface{}, 0, len(c.docs))
	for _, doc := range c.docs {
		docs = append(docs, copyDoc(doc))
	}
	c.mu.RUnlock()

	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("pipeline stage must have exactly one operator, got %d", len(stage))
		}
		var err error
		for op, arg := range stage {
			docs, err = applyStage(docs, op, arg)
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func applyStage(docs []map[string]interface{}, op string, arg interface{}) ([]map[string]interface{}, error) {
	switch op {
	case "$match":
		filter, ok := asMap(arg)
		if !ok {
			return nil, fmt.Errorf("$match argument is not a document")
		}
		var out []map[string]interface{}
		for _, doc := range docs {
			if matches(doc, filter) {
				out = append(out, doc)
			}
		}
		return out, nil

	case "$sample":
		spec, ok := asMap(arg)
		if !ok {
			return nil, fmt.Errorf("$sample argument is not a document")
		}
		size, ok := asInt(spec["size"])
		if !ok {
			return nil, fmt.Errorf("$sample requires a numeric size")
		}
		shuffled := make([]map[string]interface{}, len(docs))
		copy(shuffled, docs)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if int64(len(shuffled)) > size {
			shuffled = shuffled[:size]
		}
		return shuffled, nil

	case "$skip":
		n, ok := asInt(arg)
		if !ok {
			return nil, fmt.Errorf("$skip requires a number")
		}
		if n >= int64(len(docs)) {
			return nil, nil
		}
		return docs[n:], nil

	case "$limit":
		n, ok := asInt(arg)
		if !ok {
			return nil, fmt.Errorf("$limit requires a number")
		}
		if int64(len(docs)) > n {
			docs = docs[:n]
		}
		return docs, nil

	case "$sort":
		spec, ok := asMap(arg)
		if !ok {
			return nil, fmt.Errorf("$sort argument is not a document")
		}
		var rules []store.Sort
		for field, order := range spec {
			o, _ := asInt(order)
			rules = append(rules, store.Sort{Field: field, Order: int(o)})
		}
		sortDocs(docs, rules)
		return docs, nil

	case "$project":
		spec, ok := asMap(arg)
		if !ok {
			return nil, fmt.Errorf("$project argument is not a document")
		}
		out := make([]map[string]interface{}, len(docs))
		for i, doc := range docs {
			out[i] = project(doc, spec)
		}
		return out, nil

	case "$count":
		name, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("$count requires a field name")
		}
		return []map[string]interface{}{{name: int64(len(docs))}}, nil

	default:
		return nil, fmt.Errorf("unsupported pipeline stage %s", op)
	}
}

func sortDocs(docs []map[string]interface{}, rules []store.Sort) {
	if len(rules) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, rule := range rules {
			a, _ := lookupPath(docs[i], rule.Field)
			b, _ := lookupPath(docs[j], rule.Field)
			cmp, ok := compareOrder(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if rule.Order < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// project applies an inclusion or exclusion projection. A projection is
// inclusive when any non-_id field is included.
func project(doc, spec map[string]interface{}) map[string]interface{} {
	inclusive := false
	for field, v := range spec {
		if field != "_id" && truthy(v) {
			inclusive = true
			break
		}
	}

	if !inclusive {
		out := copyDoc(doc)
		for field, v := range spec {
			if !truthy(v) {
				delete(out, field)
			}
		}
		return out
	}

	out := make(map[string]interface{})
	if id, ok := doc["_id"]; ok {
		if v, excluded := spec["_id"]; !excluded || truthy(v) {
			out["_id"] = id
		}
	}
	for field, v := range spec {
		if field == "_id" || !truthy(v) {
			continue
		}
		if value, ok := doc[field]; ok {
			out[field] = copyValue(value)
		}
	}
	return out
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	default:
		n, ok := asFloat(v)
		return ok && n != 0
	}
}

