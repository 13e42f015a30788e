package repository

import (
	"testing"
)

func TestFilterMatches(t *testing.T) {
	doc := Document{"userId": "default", "bpm": float64(128), "tags": []any{"a"}}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", Filter{}, true},
		{"string equal", Filter{Field: "userId", Value: "default"}, true},
		{"string differs", Filter{Field: "userId", Value: "other"}, false},
		{"int matches json float", Filter{Field: "bpm", Value: 128}, true},
		{"number vs string", Filter{Field: "bpm", Value: "128"}, false},
		{"missing field", Filter{Field: "nope", Value: "x"}, false},
		{"slice deep equal", Filter{Field: "tags", Value: []any{"a"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(doc); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeDocument(t *testing.T) {
	base := Document{"a": 1, "nested": map[string]any{"x": 1, "y": 2}}
	out := mergeDocument(base, Document{"b": 2, "nested": map[string]any{"x": 9}})

	if out["a"] != 1 || out["b"] != 2 {
		t.Errorf("unexpected merge result: %v", out)
	}
	nested := out["nested"].(map[string]any)
	if _, ok := nested["y"]; ok {
		t.Error("nested value should be replaced wholesale")
	}
	if base["nested"].(map[string]any)["x"] != 1 {
		t.Error("merge mutated base")
	}

	if got := mergeDocument(nil, Document{"k": "v"}); got["k"] != "v" {
		t.Errorf("merge onto nil base lost fields: %v", got)
	}
}

func TestNewUUID(t *testing.T) {
	a, b := NewUUID(), NewUUID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q %q", a, b)
	}
}
