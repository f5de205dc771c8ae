package document

import "go.mongodb.org/mongo-driver/bson/primitive"

// deepCopyMap copies a document tree, normalizing bson document and
// array representations into plain maps and slices so the backing map
// holds a single shape regardless of where the data came from.
func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case primitive.M:
		return deepCopyMap(val)
	case primitive.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = deepCopyValue(e.Value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		// Scalars (and bson scalar types such as ObjectID and DateTime)
		// are copied by value.
		return v
	}
}
