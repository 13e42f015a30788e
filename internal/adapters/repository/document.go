package repository

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// IDFunc allocates document identifiers.
type IDFunc func() string

// NewUUID is the default IDFunc.
func NewUUID() string { return uuid.NewString() }

func validate(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidRequest)
	}
	if id == "" {
		return fmt.Errorf("%w: empty id in %s", ErrInvalidRequest, collection)
	}
	return nil
}

// cloneDocument deep-copies maps and slices so callers never share state
// with a backend.
func cloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDocument(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// mergeDocument overlays fields onto base one level deep: a nested map in
// fields replaces the whole nested value.
func mergeDocument(base, fields Document) Document {
	out := cloneDocument(base)
	if out == nil {
		out = make(Document, len(fields))
	}
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

// Matches reports whether doc satisfies f. An empty filter field matches
// everything.
func (f Filter) Matches(doc Document) bool {
	if f.Field == "" {
		return true
	}
	v, ok := doc[f.Field]
	if !ok {
		return false
	}
	return valuesEqual(v, f.Value)
}

// valuesEqual compares numerics by value so JSON-decoded float64 matches an
// int filter.
func valuesEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
