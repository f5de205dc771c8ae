package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userValidator is the shape of a typical collection validator as the
// driver decodes it: ordered at every level.
func userValidator() primitive.D {
	return primitive.D{
		{Key: "$jsonSchema", Value: primitive.D{
			{Key: "bsonType", Value: "object"},
			{Key: "required", Value: primitive.A{"name", "email"}},
			{Key: "properties", Value: primitive.D{
				{Key: "name", Value: primitive.D{
					{Key: "bsonType", Value: "string"},
					{Key: "minLength", Value: int32(1)},
					{Key: "maxLength", Value: int32(120)},
				}},
				{Key: "email", Value: primitive.D{
					{Key: "bsonType", Value: "string"},
					{Key: "pattern", Value: "^[^@]+@[^@]+$"},
				}},
				{Key: "age", Value: primitive.D{
					{Key: "bsonType", Value: "int"},
					{Key: "minimum", Value: int32(0)},
					{Key: "maximum", Value: int32(150)},
				}},
				{Key: "status", Value: primitive.D{
					{Key: "enum", Value: primitive.A{"active", "inactive"}},
					{Key: "bsonType", Value: "string"},
				}},
				{Key: "address", Value: primitive.D{
					{Key: "bsonType", Value: "object"},
					{Key: "properties", Value: primitive.D{
						{Key: "city", Value: primitive.D{{Key: "bsonType", Value: "string"}}},
						{Key: "zip", Value: primitive.D{{Key: "bsonType", Value: "string"}}},
					}},
					{Key: "required", Value: primitive.A{"city"}},
				}},
				{Key: "tags", Value: primitive.D{
					{Key: "bsonType", Value: "array"},
					{Key: "items", Value: primitive.D{{Key: "bsonType", Value: "string"}}},
					{Key: "maxItems", Value: int32(10)},
				}},
			}},
		}},
	}
}

func TestCompile_FullValidator(t *testing.T) {
	obj, err := Compile(userValidator())
	require.NoError(t, err)

	// Declaration order survives compilation.
	assert.Equal(t, []string{"name", "email", "age", "status", "address", "tags"}, obj.Fields())
	assert.Equal(t, []string{"name", "email"}, obj.RequiredFields())

	name, ok := obj.Field("name")
	require.True(t, ok)
	scalar := name.(*Scalar)
	assert.Equal(t, KindString, scalar.Type)
	require.NotNil(t, scalar.MinLength)
	assert.Equal(t, 1, *scalar.MinLength)
	require.NotNil(t, scalar.MaxLength)
	assert.Equal(t, 120, *scalar.MaxLength)

	email, _ := obj.Field("email")
	require.NotNil(t, email.(*Scalar).Pattern)
	assert.True(t, email.(*Scalar).Pattern.MatchString("a@b.c"))

	age, _ := obj.Field("age")
	require.NotNil(t, age.(*Scalar).Minimum)
	assert.Equal(t, float64(0), *age.(*Scalar).Minimum)
	require.NotNil(t, age.(*Scalar).Maximum)
	assert.Equal(t, float64(150), *age.(*Scalar).Maximum)

	status, _ := obj.Field("status")
	assert.Equal(t, []interface{}{"active", "inactive"}, status.(*Scalar).Enum)

	address, ok := obj.Field("address")
	require.True(t, ok)
	nested := address.(*Object)
	assert.Equal(t, []string{"city", "zip"}, nested.Fields())
	assert.True(t, nested.IsRequired("city"))
	assert.False(t, nested.IsRequired("zip"))

	tags, _ := obj.Field("tags")
	arr := tags.(*Array)
	assert.Equal(t, KindString, arr.Item.Kind())
	require.NotNil(t, arr.MaxItems)
	assert.Equal(t, 10, *arr.MaxItems)
}

func TestCompile_PlainMapSortsFields(t *testing.T) {
	obj, err := Compile(map[string]interface{}{
		"bsonType": "object",
		"properties": map[string]interface{}{
			"zebra": map[string]interface{}{"bsonType": "string"},
			"alpha": map[string]interface{}{"bsonType": "string"},
			"mid":   map[string]interface{}{"bsonType": "int"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, obj.Fields())
}

func TestCompile_NoWrapper(t *testing.T) {
	obj, err := Compile(map[string]interface{}{
		"bsonType": "object",
		"properties": map[string]interface{}{
			"n": map[string]interface{}{"bsonType": "long"},
		},
	})
	require.NoError(t, err)

	n, ok := obj.Field("n")
	require.True(t, ok)
	assert.Equal(t, KindInteger, n.Kind())
}

func TestCompile_PropertiesWithoutTypeIsObject(t *testing.T) {
	obj, err := Compile(map[string]interface{}{
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"bsonType": "string"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, obj.Len())
}

func TestCompile_TypeListPicksNonNull(t *testing.T) {
	obj, err := Compile(map[string]interface{}{
		"bsonType": "object",
		"properties": map[string]interface{}{
			"nick": map[string]interface{}{
				"bsonType": []interface{}{"null", "string"},
			},
		},
	})
	require.NoError(t, err)

	nick, _ := obj.Field("nick")
	assert.Equal(t, KindString, nick.Kind())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  interface{}
		want string
	}{
		{
			name: "root not an object",
			doc:  map[string]interface{}{"bsonType": "string"},
			want: "root node must be an object",
		},
		{
			name: "node without type",
			doc: map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{"minimum": 1},
				},
			},
			want: "lacks a resolvable type",
		},
		{
			name: "unknown type name",
			doc: map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{"bsonType": "decimalish"},
				},
			},
			want: "unknown type name",
		},
		{
			name: "array without items",
			doc: map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"xs": map[string]interface{}{"bsonType": "array"},
				},
			},
			want: "lacks an item type",
		},
		{
			name: "required references undeclared field",
			doc: map[string]interface{}{
				"bsonType": "object",
				"required": []interface{}{"ghost"},
				"properties": map[string]interface{}{
					"x": map[string]interface{}{"bsonType": "string"},
				},
			},
			want: "undeclared field",
		},
		{
			name: "invalid pattern",
			doc: map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{"bsonType": "string", "pattern": "("},
				},
			},
			want: "invalid pattern",
		},
		{
			name: "non-integer length bound",
			doc: map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{"bsonType": "string", "minLength": 1.5},
				},
			},
			want: "not an integer",
		},
		{
			name: "not a document",
			doc:  "nope",
			want: "not a document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompile_ErrorPathsPointAtField(t *testing.T) {
	_, err := Compile(map[string]interface{}{
		"bsonType": "object",
		"properties": map[string]interface{}{
			"address": map[string]interface{}{
				"bsonType": "object",
				"properties": map[string]interface{}{
					"zip": map[string]interface{}{"bsonType": "postal"},
				},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address.zip")
}

func TestCompileLimit_DepthBound(t *testing.T) {
	// Build a schema nested two levels past the bound.
	leaf := map[string]interface{}{"bsonType": "string"}
	node := map[string]interface{}{
		"bsonType":   "object",
		"properties": map[string]interface{}{"leaf": leaf},
	}
	for i := 0; i < 5; i++ {
		node = map[string]interface{}{
			"bsonType":   "object",
			"properties": map[string]interface{}{"child": node},
		}
	}

	_, err := CompileLimit(node, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")

	_, err = CompileLimit(node, 10)
	assert.NoError(t, err)
}

func TestCompile_Deterministic(t *testing.T) {
	doc := userValidator()
	a, err := Compile(doc)
	require.NoError(t, err)
	b, err := Compile(doc)
	require.NoError(t, err)

	assert.Equal(t, a.Fields(), b.Fields())
	assert.Equal(t, a.RequiredFields(), b.RequiredFields())
}
