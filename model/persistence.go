package model

import (
	"context"

	"go.uber.org/multierr"

	"github.com/vellumdb/vellum/analytics"
	"github.com/vellumdb/vellum/document"
	"github.com/vellumdb/vellum/store"
	"github.com/vellumdb/vellum/validation"
)

// Save persists the instance: pre-save hooks, full-document validation
// against the root descriptor (the object-level required-field check
// happens here, not per write), identifier assignment when absent, an
// insert-or-replace against the collection, then post-save hooks. Hook
// errors abort persistence and propagate.
func (m *Model) Save(ctx context.Context, inst *Instance) error {
	doc, err := m.prepare(ctx, inst)
	if err != nil {
		return err
	}

	if err := m.coll.ReplaceOne(ctx, map[string]interface{}{IDField: doc[IDField]}, doc, true); err != nil {
		return err
	}

	if err := m.hooks.run(ctx, PostSave, inst); err != nil {
		return err
	}
	inst.ClearDirty()
	return nil
}

// Save persists the instance through its bound model.
func (i *Instance) Save(ctx context.Context) error {
	return i.model.Save(ctx, i)
}

// Delete removes the instance's stored document, running the delete
// hooks around the removal.
func (i *Instance) Delete(ctx context.Context) error {
	id, ok := i.Raw(IDField)
	if !ok {
		return &document.UsageError{Msg: "instance has no identifier; it was never saved"}
	}
	m := i.model

	if err := m.hooks.run(ctx, PreDelete, i); err != nil {
		return err
	}
	if _, err := m.coll.DeleteOne(ctx, map[string]interface{}{IDField: id}); err != nil {
		return err
	}
	return m.hooks.run(ctx, PostDelete, i)
}

// FindOne returns the first document matching filter hydrated into an
// instance, or nil when nothing matches; absence is not an error.
// Hydration never re-validates. Soft-deleted documents are excluded
// unless the filter mentions the flag field.
func (m *Model) FindOne(ctx context.Context, filter map[string]interface{}) (*Instance, error) {
	raw, err := m.coll.FindOne(ctx, m.excludeDeleted(filter))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return m.FromMap(raw), nil
}

// FindByID is FindOne keyed on the identifier field.
func (m *Model) FindByID(ctx context.Context, id interface{}) (*Instance, error) {
	return m.FindOne(ctx, map[string]interface{}{IDField: id})
}

// FindMany returns all matching documents hydrated into instances,
// excluding soft-deleted documents unless the filter mentions the flag.
func (m *Model) FindMany(ctx context.Context, filter map[string]interface{}, opts store.FindOptions) ([]*Instance, error) {
	raws, err := m.coll.Find(ctx, m.excludeDeleted(filter), opts)
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, 0, len(raws))
	for _, raw := range raws {
		out = append(out, m.FromMap(raw))
	}
	return out, nil
}

// Query runs a find with projection support and returns raw documents.
// A projection can cut across the schema's shape, so results are not
// hydrated into proxies. The filter passes through untouched.
func (m *Model) Query(ctx context.Context, filter, projection map[string]interface{}, sort []store.Sort, limit int64) ([]map[string]interface{}, error) {
	return m.coll.Find(ctx, nonNil(filter), store.FindOptions{
		Projection: projection,
		Sort:       sort,
		Limit:      limit,
	})
}

// Count returns the number of documents matching filter, passed through
// untouched.
func (m *Model) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	return m.coll.Count(ctx, nonNil(filter))
}

// Exists reports whether any document matches filter.
func (m *Model) Exists(ctx context.Context, filter map[string]interface{}) (bool, error) {
	n, err := m.Count(ctx, filter)
	return n > 0, err
}

// UpdateOne applies update operators to the first matching document.
// Both documents pass through to the collaborator untouched.
func (m *Model) UpdateOne(ctx context.Context, filter, update map[string]interface{}) (int64, error) {
	return m.coll.UpdateOne(ctx, nonNil(filter), update)
}

// UpdateMany applies update operators to every matching document.
func (m *Model) UpdateMany(ctx context.Context, filter, update map[string]interface{}) (int64, error) {
	return m.coll.UpdateMany(ctx, nonNil(filter), update)
}

// FindAndModify applies update operators to the first match and returns
// the resulting document hydrated, or nil when nothing matched.
func (m *Model) FindAndModify(ctx context.Context, filter, update map[string]interface{}) (*Instance, error) {
	raw, err := m.coll.FindOneAndUpdate(ctx, nonNil(filter), update)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return m.FromMap(raw), nil
}

// DeleteByID removes the document with the given identifier, running
// delete hooks when the document exists. Deleting an absent identifier
// is a no-op, not an error.
func (m *Model) DeleteByID(ctx context.Context, id interface{}) error {
	raw, err := m.coll.FindOne(ctx, map[string]interface{}{IDField: id})
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	return m.FromMap(raw).Delete(ctx)
}

// DeleteMany removes every matching document. Bulk removal does not run
// per-instance delete hooks.
func (m *Model) DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error) {
	return m.coll.DeleteMany(ctx, nonNil(filter))
}

// SoftDelete flags matching documents as deleted instead of removing
// them. Default reads exclude flagged documents.
func (m *Model) SoftDelete(ctx context.Context, filter map[string]interface{}) (int64, error) {
	return m.coll.UpdateMany(ctx, nonNil(filter), map[string]interface{}{
		"$set": map[string]interface{}{SoftDeleteField: true},
	})
}

// RestoreDeleted clears the soft-delete flag on matching documents,
// re-including them in default reads.
func (m *Model) RestoreDeleted(ctx context.Context, filter map[string]interface{}) (int64, error) {
	return m.coll.UpdateMany(ctx, nonNil(filter), map[string]interface{}{
		"$unset": map[string]interface{}{SoftDeleteField: ""},
	})
}

// BulkSave persists instances with the same per-instance hook,
// validation, and identifier sequence as Save, batching the underlying
// write into one call. By default a single invalid instance aborts the
// whole batch before anything is written; with WithPartialBulkSave the
// valid instances persist and the failures are reported together.
func (m *Model) BulkSave(ctx context.Context, insts []*Instance) error {
	var batchErr error
	docs := make([]map[string]interface{}, 0, len(insts))
	saved := make([]*Instance, 0, len(insts))

	for _, inst := range insts {
		doc, err := m.prepare(ctx, inst)
		if err != nil {
			if !m.partialBulk {
				return err
			}
			batchErr = multierr.Append(batchErr, err)
			continue
		}
		docs = append(docs, doc)
		saved = append(saved, inst)
	}

	if len(docs) > 0 {
		if err := m.coll.BulkReplace(ctx, docs); err != nil {
			// Keep the per-instance preparation failures visible
			// alongside the store failure.
			return multierr.Append(batchErr, err)
		}
	}

	for _, inst := range saved {
		if err := m.hooks.run(ctx, PostSave, inst); err != nil {
			return err
		}
		inst.ClearDirty()
	}
	return batchErr
}

// prepare runs the pre-save sequence for one instance and returns the
// document to persist.
func (m *Model) prepare(ctx context.Context, inst *Instance) (map[string]interface{}, error) {
	if err := m.hooks.run(ctx, PreSave, inst); err != nil {
		return nil, err
	}

	res := validation.Validate(inst.ToMap(), m.desc)
	if !res.OK {
		return nil, validation.NewError(res.Violations)
	}
	doc := res.Coerced.(map[string]interface{})

	id, ok := inst.Raw(IDField)
	if !ok {
		id = m.coll.NewID()
		inst.SetRaw(IDField, id)
	}
	doc[IDField] = id
	return doc, nil
}

// Aggregate passes the pipeline through to the collaborator untouched
// and returns the raw stage output.
func (m *Model) Aggregate(ctx context.Context, pipeline []map[string]interface{}) ([]map[string]interface{}, error) {
	return m.coll.Aggregate(ctx, pipeline)
}

// Page is one page of results with pagination bookkeeping.
type Page struct {
	Items      []*Instance
	Page       int64
	PageSize   int64
	Total      int64
	TotalPages int64
}

// Paginate returns the given 1-based page of matching documents.
func (m *Model) Paginate(ctx context.Context, filter map[string]interface{}, page, pageSize int64) (*Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, &document.UsageError{Msg: "page and pageSize must be positive"}
	}

	total, err := m.coll.Count(ctx, m.excludeDeleted(filter))
	if err != nil {
		return nil, err
	}
	items, err := m.FindMany(ctx, filter, store.FindOptions{
		Skip:  (page - 1) * pageSize,
		Limit: pageSize,
	})
	if err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// RegexQuery finds documents whose field matches the given pattern,
// with optional regex options such as "i".
func (m *Model) RegexQuery(ctx context.Context, field, pattern, options string) ([]*Instance, error) {
	cond := map[string]interface{}{"$regex": pattern}
	if options != "" {
		cond["$options"] = options
	}
	return m.FindMany(ctx, map[string]interface{}{field: cond}, store.FindOptions{})
}

// TextSearch finds documents matching a text-index query.
func (m *Model) TextSearch(ctx context.Context, query string) ([]*Instance, error) {
	filter := map[string]interface{}{
		"$text": map[string]interface{}{"$search": query},
	}
	return m.FindMany(ctx, filter, store.FindOptions{})
}

// Diff structurally compares two documents using the model's descriptor
// tree.
func (m *Model) Diff(a, b map[string]interface{}, strict bool) map[string]analytics.Change {
	return analytics.Diff(a, b, m.desc, strict)
}

// Summarize draws up to sampleSize documents from the collection and
// computes per-field statistics driven by the descriptor tree.
func (m *Model) Summarize(ctx context.Context, sampleSize, top int) (map[string]analytics.FieldSummary, error) {
	return analytics.Summarize(ctx, m.coll, m.desc, sampleSize, top)
}

// excludeDeleted merges the soft-delete exclusion into a read filter.
// A filter that already mentions the flag field passes through as
// given, so callers can query flagged documents explicitly.
func (m *Model) excludeDeleted(filter map[string]interface{}) map[string]interface{} {
	if _, mentioned := filter[SoftDeleteField]; mentioned {
		return filter
	}
	out := make(map[string]interface{}, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out[SoftDeleteField] = map[string]interface{}{"$ne": true}
	return out
}

func nonNil(filter map[string]interface{}) map[string]interface{} {
	if filter == nil {
		return map[string]interface{}{}
	}
	return filter
}
