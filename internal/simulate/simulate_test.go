package simulate

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"

	"github.com/jacoelho/jpc/internal/pointer"
	"github.com/jacoelho/jpc/internal/query"
)

func decode(t *testing.T, doc string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return v
}

func TestRunBasicSelectors(t *testing.T) {
	t.Parallel()

	doc := decode(t, `{
		"store": {
			"book": [
				{"category": "fiction", "price": 8.95, "title": "Moby Dick"},
				{"category": "fiction", "price": 22.99, "title": "The Stand"},
				{"category": "reference", "price": 12.5, "title": "Dict"}
			],
			"bicycle": {"color": "red", "price": 19.95}
		}
	}`)

	tests := []struct {
		name string
		expr string
		want []any
	}{
		{
			name: "dot_name_chain",
			expr: "$.store.bicycle.color",
			want: []any{"red"},
		},
		{
			name: "array_index",
			expr: "$.store.book[0].title",
			want: []any{"Moby Dick"},
		},
		{
			name: "negative_index",
			expr: "$.store.book[-1].title",
			want: []any{"Dict"},
		},
		{
			name: "slice",
			expr: "$.store.book[0:2].title",
			want: []any{"Moby Dick", "The Stand"},
		},
		{
			name: "filter_numeric_lt",
			expr: "$.store.book[?@.price < 10].title",
			want: []any{"Moby Dick"},
		},
		{
			name: "filter_string_eq",
			expr: "$.store.book[?@.category == 'reference'].title",
			want: []any{"Dict"},
		},
		{
			name: "filter_existence",
			expr: "$.store.book[?@.price].title",
			want: []any{"Moby Dick", "The Stand", "Dict"},
		},
		{
			name: "deep_scan_price",
			expr: "$..price",
			want: []any{8.95, 22.99, 12.5, 19.95},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := query.Parse(tt.expr)
			if err != nil {
				t.Fatalf("query.Parse(%q) failed: %v", tt.expr, err)
			}
			got, err := Run(q, doc)
			if err != nil {
				t.Fatalf("Run(%q) failed: %v", tt.expr, err)
			}
			if tt.name == "deep_scan_price" {
				sortFloats(got)
				sortFloats(tt.want)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Run(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestRunRootSubquery(t *testing.T) {
	t.Parallel()

	doc := decode(t, `{"limit": 10, "items": [{"price": 5}, {"price": 15}]}`)

	q, err := query.Parse("$.items[?@.price < $.limit].price")
	if err != nil {
		t.Fatalf("query.Parse failed: %v", err)
	}
	got, err := Run(q, doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []any{int64(5)}
	// decoded JSON numbers come back as float64 from encoding/json, so
	// compare loosely on numeric value rather than exact Go type.
	if len(got) != 1 {
		t.Fatalf("Run returned %d results, want 1", len(got))
	}
	if f, ok := got[0].(float64); !ok || f != 5 {
		t.Fatalf("Run = %v, want %v", got, want)
	}
}

func TestRunWithPathsReportsRFC6901Pointers(t *testing.T) {
	t.Parallel()

	doc := decode(t, `{
		"store": {
			"book": [
				{"title": "Moby Dick"},
				{"title": "The Stand"}
			]
		}
	}`)

	q, err := query.Parse("$.store.book[*].title")
	if err != nil {
		t.Fatalf("query.Parse failed: %v", err)
	}
	matches, err := RunWithPaths(q, doc)
	if err != nil {
		t.Fatalf("RunWithPaths failed: %v", err)
	}

	want := []string{"/store/book/0/title", "/store/book/1/title"}
	got := make([]string, len(matches))
	for i, m := range matches {
		got[i] = m.Pointer()
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RunWithPaths pointers = %v, want %v", got, want)
	}

	for i, m := range matches {
		resolved, err := pointer.Resolve(m.Pointer(), doc)
		if err != nil {
			t.Fatalf("pointer.Resolve(%q) failed: %v", m.Pointer(), err)
		}
		if !reflect.DeepEqual(resolved, m.Value) {
			t.Fatalf("pointer %q resolves to %v, want the match's own value %v", m.Pointer(), resolved, m.Value)
		}
	}
}

func TestRunWithPathsDeepScanPointers(t *testing.T) {
	t.Parallel()

	doc := decode(t, `{"a": {"price": 1}, "b": [{"price": 2}]}`)

	q, err := query.Parse("$..price")
	if err != nil {
		t.Fatalf("query.Parse failed: %v", err)
	}
	matches, err := RunWithPaths(q, doc)
	if err != nil {
		t.Fatalf("RunWithPaths failed: %v", err)
	}

	paths := make(map[string]bool, len(matches))
	for _, m := range matches {
		paths[m.Pointer()] = true
	}
	for _, want := range []string{"/a/price", "/b/0/price"} {
		if !paths[want] {
			t.Fatalf("RunWithPaths pointers = %v, missing %q", paths, want)
		}
	}
}

func sortFloats(vals []any) {
	sort.Slice(vals, func(i, j int) bool {
		return vals[i].(float64) < vals[j].(float64)
	})
}
