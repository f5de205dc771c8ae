package memstore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches evaluates a filter document against a stored document.
func matches(doc, filter map[string]interface{}) bool {
	for key, cond := range filter {
		switch key {
		case "$and":
			subs, ok := asFilterList(cond)
			if !ok {
				return false
			}
			for _, sub := range subs {
				if !matches(doc, sub) {
					return false
				}
			}

		case "$or":
			subs, ok := asFilterList(cond)
			if !ok {
				return false
			}
			any := false
			for _, sub := range subs {
				if matches(doc, sub) {
					any = true
					break
				}
			}
			if !any {
				return false
			}

		case "$text":
			if !matchText(doc, cond) {
				return false
			}

		default:
			value, exists := lookupPath(doc, key)
			if !evalCond(value, exists, cond) {
				return false
			}
		}
	}
	return true
}

// evalCond evaluates one field condition: either an operator document
// or a literal equality match.
func evalCond(value interface{}, exists bool, cond interface{}) bool {
	condMap, ok := asMap(cond)
	if !ok || !hasOperator(condMap) {
		return exists && looseEqual(value, cond)
	}

	for op, arg := range condMap {
		switch op {
		case "$eq":
			if !exists || !looseEqual(value, arg) {
				return false
			}
		case "$ne":
			// A missing field satisfies $ne, matching store semantics.
			if exists && looseEqual(value, arg) {
				return false
			}
		case "$gt", "$gte", "$lt", "$lte":
			if !exists {
				return false
			}
			cmp, ok := compareOrder(value, arg)
			if !ok {
				return false
			}
			switch op {
			case "$gt":
				if cmp <= 0 {
					return false
				}
			case "$gte":
				if cmp < 0 {
					return false
				}
			case "$lt":
				if cmp >= 0 {
					return false
				}
			case "$lte":
				if cmp > 0 {
					return false
				}
			}
		case "$in":
			if !exists || !memberOf(value, arg) {
				return false
			}
		case "$nin":
			if exists && memberOf(value, arg) {
				return false
			}
		case "$exists":
			want := truthy(arg)
			if exists != want {
				return false
			}
		case "$regex":
			if !exists || !matchRegex(value, arg, condMap["$options"]) {
				return false
			}
		case "$options":
			// Consumed by $regex.
		default:
			return false
		}
	}
	return true
}

func hasOperator(m map[string]interface{}) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func matchRegex(value, pattern, options interface{}) bool {
	str, ok := value.(string)
	if !ok {
		return false
	}
	expr, ok := pattern.(string)
	if !ok {
		return false
	}
	if opts, ok := options.(string); ok && strings.Contains(opts, "i") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(str)
}

// matchText performs a simplified $text match: a case-insensitive
// substring search over the document's top-level string values.
func matchText(doc map[string]interface{}, cond interface{}) bool {
	spec, ok := asMap(cond)
	if !ok {
		return false
	}
	query, ok := spec["$search"].(string)
	if !ok {
		return false
	}
	needle := strings.ToLower(query)
	for _, v := range doc {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func memberOf(value, list interface{}) bool {
	items, ok := asSlice(list)
	if !ok {
		return false
	}
	for _, item := range items {
		if looseEqual(value, item) {
			return true
		}
	}
	return false
}

// applyUpdate applies an update-operator document in place. The bool
// reports whether the document actually changed, mirroring the driver's
// ModifiedCount semantics: setting a field to its current value or
// unsetting an absent field matches but does not modify.
func applyUpdate(doc, update map[string]interface{}) (bool, error) {
	changed := false
	for op, rawFields := range update {
		fields, ok := asMap(rawFields)
		if !ok {
			return changed, fmt.Errorf("%s argument is not a document", op)
		}
		switch op {
		case "$set":
			for path, v := range fields {
				cur, exists := lookupPath(doc, path)
				if exists && looseEqual(cur, v) {
					continue
				}
				setPath(doc, path, copyValue(v))
				changed = true
			}
		case "$unset":
			for path := range fields {
				if _, exists := lookupPath(doc, path); !exists {
					continue
				}
				deletePath(doc, path)
				changed = true
			}
		case "$inc":
			for path, v := range fields {
				delta, ok := asFloat(v)
				if !ok {
					return changed, fmt.Errorf("$inc requires a numeric argument for %s", path)
				}
				cur, exists := lookupPath(doc, path)
				base, _ := asFloat(cur)
				setPath(doc, path, base+delta)
				if !exists || delta != 0 {
					changed = true
				}
			}
		default:
			return changed, fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return changed, nil
}

func lookupPath(doc map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = doc
	for _, seg := range segments {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc map[string]interface{}, path string, v interface{}) {
	segments := strings.Split(path, ".")
	cur := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = v
}

func deletePath(doc map[string]interface{}, path string) {
	segments := strings.Split(path, ".")
	cur := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, segments[len(segments)-1])
}

// looseEqual compares two values with numeric normalization, so an
// int64 8 stored by the engine equals a float64 8 in a filter.
func looseEqual(a, b interface{}) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// compareOrder orders two values when they are mutually comparable.
func compareOrder(a, b interface{}) (int, bool) {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case ta.Before(tb):
			return -1, true
		case ta.After(tb):
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case primitive.M:
		return m, true
	default:
		return nil, false
	}
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case primitive.A:
		return s, true
	default:
		return nil, false
	}
}

func asFilterList(v interface{}) ([]map[string]interface{}, bool) {
	items, ok := asSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
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
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int64, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyDoc(val)
	case primitive.M:
		return copyDoc(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
