package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vellumdb/vellum/schema"
	"github.com/vellumdb/vellum/store"
)

// DefaultSampleSize is used when Summarize is called with a
// non-positive sample size.
const DefaultSampleSize = 100

// ValueCount is one distinct value and how often it was observed.
type ValueCount struct {
	Value interface{} `json:"value"`
	Count int         `json:"count"`
}

// FieldSummary is the sampled statistics for one declared field path.
type FieldSummary struct {
	Types   map[string]int `json:"types"`
	Present int            `json:"present"`
	Missing int            `json:"missing"`
	Min     *float64       `json:"min,omitempty"`
	Max     *float64       `json:"max,omitempty"`
	Top     []ValueCount   `json:"top,omitempty"`
}

// Summarize draws up to sampleSize documents from the collection and
// computes, for every field path the descriptor declares: observed
// types, presence and missing counts, numeric min/max where applicable,
// and the top most frequent distinct values.
//
// Documents that violate the schema are tolerated; summarization
// reports what it sees and never raises a validation error.
func Summarize(ctx context.Context, coll store.Collection, desc *schema.Object, sampleSize, top int) (map[string]FieldSummary, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	docs, err := coll.Aggregate(ctx, []map[string]interface{}{
		{"$sample": map[string]interface{}{"size": sampleSize}},
	})
	if err != nil {
		return nil, err
	}

	paths := fieldPaths("", desc)
	out := make(map[string]FieldSummary, len(paths))
	for _, path := range paths {
		out[path] = summarizeField(path, docs, top)
	}
	return out, nil
}

// fieldPaths flattens the descriptor into dotted field paths. Array
// fields summarize as a whole; their element shape is not expanded.
func fieldPaths(prefix string, desc *schema.Object) []string {
	var out []string
	for _, name := range desc.Fields() {
		path := joinPath(prefix, name)
		out = append(out, path)
		if child, _ := desc.Field(name); child != nil {
			if obj, ok := child.(*schema.Object); ok {
				out = append(out, fieldPaths(path, obj)...)
			}
		}
	}
	return out
}

func summarizeField(path string, docs []map[string]interface{}, top int) FieldSummary {
	summary := FieldSummary{Types: make(map[string]int)}
	counts := make(map[string]ValueCount)

	for _, doc := range docs {
		v, ok := lookupPath(doc, path)
		if !ok {
			summary.Missing++
			continue
		}
		summary.Present++
		summary.Types[observedType(v)]++

		if f, isNum := toFloat(v); isNum {
			if summary.Min == nil || f < *summary.Min {
				min := f
				summary.Min = &min
			}
			if summary.Max == nil || f > *summary.Max {
				max := f
				summary.Max = &max
			}
		}

		key := valueKey(v)
		vc := counts[key]
		vc.Value = v
		vc.Count++
		counts[key] = vc
	}

	if top > 0 && len(counts) > 0 {
		ranked := make([]ValueCount, 0, len(counts))
		for _, vc := range counts {
			ranked = append(ranked, vc)
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Count != ranked[j].Count {
				return ranked[i].Count > ranked[j].Count
			}
			return valueKey(ranked[i].Value) < valueKey(ranked[j].Value)
		})
		if len(ranked) > top {
			ranked = ranked[:top]
		}
		summary.Top = ranked
	}

	return summary
}

// observedType names the stored representation of a value.
func observedType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "double"
	case time.Time, primitive.DateTime:
		return "date"
	case primitive.ObjectID:
		return "objectId"
	case []byte, primitive.Binary:
		return "binData"
	case map[string]interface{}, primitive.M:
		return "object"
	case []interface{}, primitive.A:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// valueKey builds a stable distinct-value key. JSON encoding covers the
// composite values; anything unencodable falls back to fmt.
func valueKey(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func lookupPath(doc map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = doc
	start := 0
	for i := 0; i <= len(path); i++ {
		if i != len(path) && path[i] != '.' {
			continue
		}
		seg := path[start:i]
		start = i + 1
		m, ok := cur.(map[string]interface{})
		if !ok {
			if pm, isPM := cur.(primitive.M); isPM {
				m = pm
			} else {
				return nil, false
			}
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
