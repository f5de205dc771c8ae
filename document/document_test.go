package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/validation"
)

func personDescriptor(t *testing.T) *schema.Object {
	t.Helper()
	obj, err := schema.Compile(map[string]interface{}{
		"bsonType": "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"bsonType": "string", "minLength": 1},
			"age":  map[string]interface{}{"bsonType": "int", "minimum": 0},
			"health": map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"weight": map[string]interface{}{"bsonType": "double"},
					"checkup": map[string]interface{}{
						"bsonType": "object",
						"properties": map[string]interface{}{
							"year": map[string]interface{}{"bsonType": "int"},
						},
					},
				},
			},
			"addresses": map[string]interface{}{
				"bsonType": "array",
				"items": map[string]interface{}{
					"bsonType": "object",
					"properties": map[string]interface{}{
						"street": map[string]interface{}{"bsonType": "string"},
						"zip":    map[string]interface{}{"bsonType": "string"},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return obj
}

func TestDocument_SetGetScalar(t *testing.T) {
	doc := New(personDescriptor(t))

	require.NoError(t, doc.Set("name", "Ada"))
	v, err := doc.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	// Integer values normalize to int64 on write.
	require.NoError(t, doc.Set("age", 36))
	v, err = doc.Get("age")
	require.NoError(t, err)
	assert.Equal(t, int64(36), v)
}

func TestDocument_AbsentScalarIsUnset(t *testing.T) {
	doc := New(personDescriptor(t))

	v, err := doc.Get("age")
	require.NoError(t, err)
	assert.True(t, IsUnset(v))
	assert.Equal(t, "<unset>", Unset.String())
}

func TestDocument_UnknownField(t *testing.T) {
	doc := New(personDescriptor(t))

	_, err := doc.Get("nickname")
	var unknown *schema.UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nickname", unknown.Field)

	err = doc.Set("nickname", "ada")
	assert.ErrorAs(t, err, &unknown)
}

func TestDocument_SetIsAllOrNothing(t *testing.T) {
	doc := New(personDescriptor(t))

	err := doc.Set("age", -5)
	require.Error(t, err)

	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, validation.RuleMinimum, vErr.Violations[0].Rule)

	// The rejected write left nothing behind.
	v, getErr := doc.Get("age")
	require.NoError(t, getErr)
	assert.True(t, IsUnset(v))
	assert.False(t, doc.Dirty())
}

func TestDocument_AutovivifiesObjectOnRead(t *testing.T) {
	doc := New(personDescriptor(t))

	// A pure read of an absent object field materializes an empty map.
	v, err := doc.Get("health")
	require.NoError(t, err)
	_, isDoc := v.(*Document)
	require.True(t, isDoc)

	m := doc.ToMap()
	nested, present := m["health"]
	require.True(t, present)
	assert.Equal(t, map[string]interface{}{}, nested)

	// Reading does not mark the document dirty.
	assert.False(t, doc.Dirty())
}

func TestDocument_ChildWritesVisibleOnParent(t *testing.T) {
	doc := New(personDescriptor(t))

	health, err := doc.Get("health")
	require.NoError(t, err)
	child := health.(*Document)

	require.NoError(t, child.Set("weight", 70.5))

	// The same data is visible through a fresh traversal from the root.
	again, err := doc.Get("health")
	require.NoError(t, err)
	v, err := again.(*Document).Get("weight")
	require.NoError(t, err)
	assert.Equal(t, 70.5, v)

	assert.Equal(t, 70.5, doc.ToMap()["health"].(map[string]interface{})["weight"])
	assert.True(t, doc.Dirty())
}

func TestDocument_DeepNestingThroughProxies(t *testing.T) {
	doc := New(personDescriptor(t))

	v, err := doc.GetPath("health.checkup")
	require.NoError(t, err)
	checkup := v.(*Document)
	require.NoError(t, checkup.Set("year", 2024))

	leaf, err := doc.GetPath("health.checkup.year")
	require.NoError(t, err)
	assert.Equal(t, int64(2024), leaf)
}

func TestDocument_GetPathErrors(t *testing.T) {
	doc := New(personDescriptor(t))

	_, err := doc.GetPath("health.ghost")
	var unknown *schema.UnknownFieldError
	assert.ErrorAs(t, err, &unknown)

	_, err = doc.GetPath("name.anything")
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)
}

func TestDocument_Has(t *testing.T) {
	doc := New(personDescriptor(t))

	assert.False(t, doc.Has("name"))
	require.NoError(t, doc.Set("name", "Ada"))
	assert.True(t, doc.Has("name"))

	// Has never materializes.
	assert.False(t, doc.Has("health"))
	_, present := doc.ToMap()["health"]
	assert.False(t, present)

	assert.False(t, doc.Has("undeclared"))
}

func TestDocument_RawFields(t *testing.T) {
	doc := New(personDescriptor(t))

	_, ok := doc.Raw("_id")
	assert.False(t, ok)

	doc.SetRaw("_id", "abc")
	v, ok := doc.Raw("_id")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	// Bookkeeping writes do not dirty the document.
	assert.False(t, doc.Dirty())
	assert.Equal(t, "abc", doc.ToMap()["_id"])
}

func TestDocument_ToMapIsPure(t *testing.T) {
	doc := New(personDescriptor(t))
	require.NoError(t, doc.Set("name", "Ada"))

	m1 := doc.ToMap()
	m1["name"] = "mutated"
	m1["injected"] = true

	m2 := doc.ToMap()
	assert.Equal(t, "Ada", m2["name"])
	_, present := m2["injected"]
	assert.False(t, present)
}

func TestFromMap_DeepCopiesAndHydratesLazily(t *testing.T) {
	src := map[string]interface{}{
		"name": "Ada",
		"age":  "not an int", // legacy value; hydration must not reject it
		"health": map[string]interface{}{
			"weight": 70.5,
		},
	}
	doc := FromMap(personDescriptor(t), src)

	// Hydration does not validate existing values.
	v, err := doc.Get("age")
	require.NoError(t, err)
	assert.Equal(t, "not an int", v)

	// The backing map is independent of the source.
	src["name"] = "mutated"
	v, err = doc.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	assert.False(t, doc.Dirty())
}

func TestDocument_RoundTrip(t *testing.T) {
	desc := personDescriptor(t)
	doc := New(desc)
	require.NoError(t, doc.Set("name", "Ada"))
	require.NoError(t, doc.Set("age", 36))

	health, err := doc.Get("health")
	require.NoError(t, err)
	require.NoError(t, health.(*Document).Set("weight", 70.5))

	copy := FromMap(desc, doc.ToMap())
	assert.Equal(t, doc.ToMap(), copy.ToMap())
}

func TestDocument_DirtyLifecycle(t *testing.T) {
	doc := New(personDescriptor(t))
	assert.False(t, doc.Dirty())

	require.NoError(t, doc.Set("name", "Ada"))
	assert.True(t, doc.Dirty())

	doc.ClearDirty()
	assert.False(t, doc.Dirty())

	// A nested write through a child proxy dirties the root.
	health, err := doc.Get("health")
	require.NoError(t, err)
	require.NoError(t, health.(*Document).Set("weight", 71.0))
	assert.True(t, doc.Dirty())
}
