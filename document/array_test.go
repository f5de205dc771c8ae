package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/validation"
)

func arrayDoc(t *testing.T) (*Document, *Array) {
	t.Helper()
	doc := New(personDescriptor(t))
	v, err := doc.Get("addresses")
	require.NoError(t, err)
	return doc, v.(*Array)
}

func TestArray_AddWholeItems(t *testing.T) {
	doc, arr := arrayDoc(t)

	require.NoError(t, arr.Add(
		map[string]interface{}{"street": "Main St", "zip": "02134"},
		map[string]interface{}{"street": "Side St"},
	))
	assert.Equal(t, 2, arr.Len())
	assert.True(t, doc.Dirty())

	first, err := arr.At(0)
	require.NoError(t, err)
	street, err := first.(*Document).Get("street")
	require.NoError(t, err)
	assert.Equal(t, "Main St", street)
}

func TestArray_AddFieldPairs(t *testing.T) {
	_, arr := arrayDoc(t)

	// Alternating key/value arguments describe a single element.
	require.NoError(t, arr.Add("street", "Main St", "zip", "02134"))
	require.Equal(t, 1, arr.Len())

	item, err := arr.At(0)
	require.NoError(t, err)
	m := item.(*Document).ToMap()
	assert.Equal(t, map[string]interface{}{"street": "Main St", "zip": "02134"}, m)
}

func TestArray_AddMixedFormsRejected(t *testing.T) {
	_, arr := arrayDoc(t)

	var usage *UsageError
	err := arr.Add(map[string]interface{}{"street": "Main St"}, "zip", "02134")
	require.ErrorAs(t, err, &usage)

	err = arr.Add("street", "Main St", "zip")
	require.ErrorAs(t, err, &usage)

	err = arr.Add(42)
	require.ErrorAs(t, err, &usage)

	err = arr.Add()
	require.ErrorAs(t, err, &usage)

	assert.Equal(t, 0, arr.Len())
}

func TestArray_AddValidatesBeforeMutating(t *testing.T) {
	doc, arr := arrayDoc(t)

	err := arr.Add(
		map[string]interface{}{"street": "Main St"},
		map[string]interface{}{"street": 42}, // wrong type
	)
	require.Error(t, err)

	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "1.street", vErr.Violations[0].FieldPath)

	// A rejected batch mutates nothing.
	assert.Equal(t, 0, arr.Len())
	assert.False(t, doc.Dirty())
}

func TestArray_AtOutOfRange(t *testing.T) {
	_, arr := arrayDoc(t)

	var usage *UsageError
	_, err := arr.At(0)
	assert.ErrorAs(t, err, &usage)
	_, err = arr.At(-1)
	assert.ErrorAs(t, err, &usage)
}

func TestArray_ElementWritesVisibleOnRoot(t *testing.T) {
	doc, arr := arrayDoc(t)
	require.NoError(t, arr.Add("street", "Main St"))

	item, err := arr.At(0)
	require.NoError(t, err)
	require.NoError(t, item.(*Document).Set("zip", "02134"))

	m := doc.ToMap()
	items := m["addresses"].([]interface{})
	assert.Equal(t, "02134", items[0].(map[string]interface{})["zip"])
}

func TestArray_ScalarItems(t *testing.T) {
	desc, err := schema.Compile(map[string]interface{}{
		"bsonType": "object",
		"properties": map[string]interface{}{
			"tags": map[string]interface{}{
				"bsonType": "array",
				"items":    map[string]interface{}{"bsonType": "string"},
			},
		},
	})
	require.NoError(t, err)

	doc := New(desc)
	v, err := doc.Get("tags")
	require.NoError(t, err)
	arr := v.(*Array)

	// For scalar item types every argument is one element.
	require.NoError(t, arr.Add("alpha", "beta", "gamma"))
	assert.Equal(t, 3, arr.Len())

	item, err := arr.At(1)
	require.NoError(t, err)
	assert.Equal(t, "beta", item)

	assert.Equal(t, []interface{}{"alpha", "beta", "gamma"}, arr.ToSlice())

	err = arr.Add(7)
	var vErr *validation.Error
	assert.ErrorAs(t, err, &vErr)
}

func TestArray_ToSliceIsACopy(t *testing.T) {
	_, arr := arrayDoc(t)
	require.NoError(t, arr.Add("street", "Main St"))

	out := arr.ToSlice()
	out[0].(map[string]interface{})["street"] = "mutated"

	item, err := arr.At(0)
	require.NoError(t, err)
	street, err := item.(*Document).Get("street")
	require.NoError(t, err)
	assert.Equal(t, "Main St", street)
}

func TestArray_EmptyBeforeFirstAdd(t *testing.T) {
	doc, arr := arrayDoc(t)

	// Reading an absent array field materializes nothing.
	assert.Equal(t, 0, arr.Len())
	assert.Empty(t, arr.ToSlice())
	_, present := doc.ToMap()["addresses"]
	assert.False(t, present)
}
