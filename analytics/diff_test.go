package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumdb/vellum/schema"
)

func userDescriptor(t *testing.T) *schema.Object {
	t.Helper()
	obj, err := schema.Compile(map[string]interface{}{
		"bsonType": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"bsonType": "string"},
			"age":  map[string]interface{}{"bsonType": "int"},
			"address": map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"city": map[string]interface{}{"bsonType": "string"},
					"zip":  map[string]interface{}{"bsonType": "string"},
				},
			},
			"tags": map[string]interface{}{
				"bsonType": "array",
				"items":    map[string]interface{}{"bsonType": "string"},
			},
		},
	})
	require.NoError(t, err)
	return obj
}

func TestDiff_IdenticalDocuments(t *testing.T) {
	doc := map[string]interface{}{
		"name": "Ada",
		"age":  36,
		"address": map[string]interface{}{
			"city": "Boston",
		},
		"tags": []interface{}{"a", "b"},
	}
	assert.Empty(t, Diff(doc, doc, userDescriptor(t), true))
}

func TestDiff_ScalarChange(t *testing.T) {
	a := map[string]interface{}{"name": "Ada", "age": 36}
	b := map[string]interface{}{"name": "Ada", "age": 37}

	changes := Diff(a, b, userDescriptor(t), false)
	require.Len(t, changes, 1)
	c := changes["age"]
	assert.Equal(t, 36, c.Old)
	assert.Equal(t, 37, c.New)
	assert.False(t, c.TypeChanged)
}

func TestDiff_CoercedEquality(t *testing.T) {
	desc := userDescriptor(t)
	a := map[string]interface{}{"age": 30}
	b := map[string]interface{}{"age": "30"}

	// Non-strict: equal after coercion to the declared numeric kind.
	assert.Empty(t, Diff(a, b, desc, false))

	// Strict: equal values but differing stored types.
	changes := Diff(a, b, desc, true)
	require.Contains(t, changes, "age")
	assert.True(t, changes["age"].TypeChanged)
}

func TestDiff_NestedPaths(t *testing.T) {
	a := map[string]interface{}{
		"address": map[string]interface{}{"city": "Boston", "zip": "02134"},
	}
	b := map[string]interface{}{
		"address": map[string]interface{}{"city": "Cambridge", "zip": "02134"},
	}

	changes := Diff(a, b, userDescriptor(t), false)
	require.Len(t, changes, 1)
	c, ok := changes["address.city"]
	require.True(t, ok)
	assert.Equal(t, "Boston", c.Old)
	assert.Equal(t, "Cambridge", c.New)
}

func TestDiff_AbsentFields(t *testing.T) {
	a := map[string]interface{}{"name": "Ada", "age": 36}
	b := map[string]interface{}{"name": "Ada"}

	changes := Diff(a, b, userDescriptor(t), false)
	require.Len(t, changes, 1)
	c := changes["age"]
	assert.Equal(t, 36, c.Old)
	assert.True(t, IsAbsent(c.New))
	assert.Equal(t, "<absent>", Absent.String())

	// Absence is distinct from an explicit null.
	withNull := map[string]interface{}{"name": "Ada", "age": nil}
	changes = Diff(a, withNull, userDescriptor(t), false)
	require.Len(t, changes, 1)
	assert.False(t, IsAbsent(changes["age"].New))
}

func TestDiff_Arrays(t *testing.T) {
	desc := userDescriptor(t)
	a := map[string]interface{}{"tags": []interface{}{"x", "y"}}
	b := map[string]interface{}{"tags": []interface{}{"x", "z"}}

	changes := Diff(a, b, desc, false)
	require.Contains(t, changes, "tags")

	same := map[string]interface{}{"tags": []interface{}{"x", "y"}}
	assert.Empty(t, Diff(a, same, desc, false))
}

func TestDiff_UndeclaredFields(t *testing.T) {
	a := map[string]interface{}{"legacy": 1}
	b := map[string]interface{}{"legacy": 1.0}

	// Non-strict compares undeclared numerics by value.
	assert.Empty(t, Diff(a, b, userDescriptor(t), false))

	changes := Diff(a, b, userDescriptor(t), true)
	assert.Contains(t, changes, "legacy")
}

func TestDiff_NilDescriptor(t *testing.T) {
	a := map[string]interface{}{"x": 1}
	b := map[string]interface{}{"x": 2}
	changes := Diff(a, b, nil, false)
	require.Len(t, changes, 1)
	assert.Contains(t, changes, "x")
}

func TestDiff_DeterministicUnion(t *testing.T) {
	a := map[string]interface{}{"z": 1, "m": 1, "a": 1}
	b := map[string]interface{}{}

	first := Diff(a, b, nil, false)
	second := Diff(a, b, nil, false)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}
