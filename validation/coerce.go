package validation

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vellumdb/vellum/schema"
)

// coerce confirms that value matches the target kind, applying only the
// narrow coercions the engine permits: unambiguous numeric strings to
// numbers when the target is numeric, and lossless widening between
// integer representations. Every other mismatch fails; nothing is
// silently coerced across incompatible kinds.
func coerce(value interface{}, kind schema.Kind) (interface{}, bool) {
	switch kind {
	case schema.KindString:
		s, ok := value.(string)
		return s, ok

	case schema.KindInteger:
		switch n := value.(type) {
		case int:
			return int64(n), true
		case int32:
			return int64(n), true
		case int64:
			return n, true
		case float64:
			if n == float64(int64(n)) {
				return int64(n), true
			}
			return nil, false
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i, true
			}
			return nil, false
		default:
			return nil, false
		}

	case schema.KindNumber:
		switch n := value.(type) {
		case int:
			return float64(n), true
		case int32:
			return float64(n), true
		case int64:
			return float64(n), true
		case float32:
			return float64(n), true
		case float64:
			return n, true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
			return nil, false
		default:
			return nil, false
		}

	case schema.KindBool:
		b, ok := value.(bool)
		return b, ok

	case schema.KindDate:
		switch t := value.(type) {
		case time.Time:
			return t, true
		case primitive.DateTime:
			return t.Time(), true
		default:
			return nil, false
		}

	case schema.KindObjectID:
		switch id := value.(type) {
		case primitive.ObjectID:
			return id, true
		case string:
			// Hex identifier representations are accepted as-is.
			if _, err := primitive.ObjectIDFromHex(id); err == nil {
				return id, true
			}
			return nil, false
		default:
			return nil, false
		}

	case schema.KindBinary:
		switch b := value.(type) {
		case []byte:
			return b, true
		case primitive.Binary:
			return b, true
		default:
			return nil, false
		}

	case schema.KindNull:
		if value == nil {
			return nil, true
		}
		return nil, false

	default:
		return nil, false
	}
}

// looseEqual compares two values after coercing both to the given kind.
// It backs enum membership and non-strict diffing.
func looseEqual(a, b interface{}, kind schema.Kind) bool {
	ca, okA := coerce(a, kind)
	cb, okB := coerce(b, kind)
	if !okA || !okB {
		return equalValues(a, b)
	}
	return equalValues(ca, cb)
}

func equalValues(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch va := a.(type) {
	case time.Time:
		vb, ok := b.(time.Time)
		return ok && va.Equal(vb)
	case []byte:
		vb, ok := b.([]byte)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if va[i] != vb[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
