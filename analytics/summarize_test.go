package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumdb/vellum/store/memstore"
)

func seededCollection(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	coll := st.Collection("users")
	ctx := context.Background()
	docs := []map[string]interface{}{
		{"_id": "1", "name": "Ada", "age": int64(36), "address": map[string]interface{}{"city": "Boston"}},
		{"_id": "2", "name": "Grace", "age": int64(45), "address": map[string]interface{}{"city": "Boston"}},
		{"_id": "3", "name": "Alan", "age": "41", "address": map[string]interface{}{"city": "London"}},
		{"_id": "4", "name": "Edsger"},
	}
	for _, doc := range docs {
		require.NoError(t, coll.InsertOne(ctx, doc))
	}
	return st
}

func TestSummarize(t *testing.T) {
	st := seededCollection(t)
	desc := userDescriptor(t)

	out, err := Summarize(context.Background(), st.Collection("users"), desc, 100, 3)
	require.NoError(t, err)

	// Every declared path is reported, nested objects expanded.
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "age")
	assert.Contains(t, out, "address")
	assert.Contains(t, out, "address.city")
	assert.Contains(t, out, "tags")

	name := out["name"]
	assert.Equal(t, 4, name.Present)
	assert.Equal(t, 0, name.Missing)
	assert.Equal(t, map[string]int{"string": 4}, name.Types)

	// Mixed representations are reported, never rejected.
	age := out["age"]
	assert.Equal(t, 3, age.Present)
	assert.Equal(t, 1, age.Missing)
	assert.Equal(t, map[string]int{"int": 2, "string": 1}, age.Types)
	require.NotNil(t, age.Min)
	assert.Equal(t, float64(36), *age.Min)
	require.NotNil(t, age.Max)
	assert.Equal(t, float64(45), *age.Max)

	city := out["address.city"]
	assert.Equal(t, 3, city.Present)
	assert.Equal(t, 1, city.Missing)

	tags := out["tags"]
	assert.Equal(t, 0, tags.Present)
	assert.Equal(t, 4, tags.Missing)
	assert.Nil(t, tags.Min)
}

func TestSummarize_TopValues(t *testing.T) {
	st := seededCollection(t)
	desc := userDescriptor(t)

	out, err := Summarize(context.Background(), st.Collection("users"), desc, 100, 2)
	require.NoError(t, err)

	city := out["address.city"]
	require.Len(t, city.Top, 2)
	assert.Equal(t, "Boston", city.Top[0].Value)
	assert.Equal(t, 2, city.Top[0].Count)
	assert.Equal(t, "London", city.Top[1].Value)
	assert.Equal(t, 1, city.Top[1].Count)
}

func TestSummarize_SampleBound(t *testing.T) {
	st := seededCollection(t)
	desc := userDescriptor(t)

	out, err := Summarize(context.Background(), st.Collection("users"), desc, 2, 0)
	require.NoError(t, err)

	name := out["name"]
	assert.Equal(t, 2, name.Present+name.Missing)
	assert.Empty(t, name.Top, "top disabled when non-positive")
}

func TestSummarize_DefaultSampleSize(t *testing.T) {
	st := seededCollection(t)
	desc := userDescriptor(t)

	out, err := Summarize(context.Background(), st.Collection("users"), desc, 0, 1)
	require.NoError(t, err)
	name := out["name"]
	assert.Equal(t, 4, name.Present)
}

func TestObservedType(t *testing.T) {
	assert.Equal(t, "null", observedType(nil))
	assert.Equal(t, "string", observedType("x"))
	assert.Equal(t, "int", observedType(int64(1)))
	assert.Equal(t, "double", observedType(1.5))
	assert.Equal(t, "bool", observedType(true))
	assert.Equal(t, "object", observedType(map[string]interface{}{}))
	assert.Equal(t, "array", observedType([]interface{}{}))
}
