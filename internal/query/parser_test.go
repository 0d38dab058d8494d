package query

import (
	"errors"
	"testing"
)

func TestParseSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		want    *Query
		wantErr bool
	}{
		{
			name: "root_only",
			expr: "$",
			want: &Query{},
		},
		{
			name: "dot_name",
			expr: "$.store.book",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{NameSelector{Name: "store"}}},
				{Selectors: []Selector{NameSelector{Name: "book"}}},
			}},
		},
		{
			name: "bracket_quoted_name",
			expr: "$['store']['book']",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{NameSelector{Name: "store"}}},
				{Selectors: []Selector{NameSelector{Name: "book"}}},
			}},
		},
		{
			name: "wildcard_dot",
			expr: "$.*",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{WildcardSelector{}}},
			}},
		},
		{
			name: "index",
			expr: "$[0]",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{IndexSelector{Index: 0}}},
			}},
		},
		{
			name: "negative_index",
			expr: "$[-1]",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{IndexSelector{Index: -1}}},
			}},
		},
		{
			name: "union",
			expr: "$[0,2,'name']",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{
					IndexSelector{Index: 0},
					IndexSelector{Index: 2},
					NameSelector{Name: "name"},
				}},
			}},
		},
		{
			name: "slice",
			expr: "$[1:4:2]",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{SliceSelector{Start: intPtr(1), End: intPtr(4), Step: intPtr(2)}}},
			}},
		},
		{
			name: "open_slice",
			expr: "$[:2]",
			want: &Query{Segments: []Segment{
				{Selectors: []Selector{SliceSelector{End: intPtr(2)}}},
			}},
		},
		{
			name: "deep_wildcard",
			expr: "$..*",
			want: &Query{Segments: []Segment{
				{Deep: true, Selectors: []Selector{WildcardSelector{}}},
			}},
		},
		{
			name: "deep_name",
			expr: "$..price",
			want: &Query{Segments: []Segment{
				{Deep: true, Selectors: []Selector{NameSelector{Name: "price"}}},
			}},
		},
		{
			name: "deep_bracket",
			expr: "$..[0]",
			want: &Query{Segments: []Segment{
				{Deep: true, Selectors: []Selector{IndexSelector{Index: 0}}},
			}},
		},
		{
			name:    "missing_root",
			expr:    "store.book",
			wantErr: true,
		},
		{
			name:    "trailing_dot",
			expr:    "$.store.",
			wantErr: true,
		},
		{
			name:    "empty_brackets",
			expr:    "$[]",
			wantErr: true,
		},
		{
			name:    "too_many_slice_colons",
			expr:    "$[1:2:3:4]",
			wantErr: true,
		},
		{
			name:    "zero_step_slice",
			expr:    "$[::0]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tt.expr, got)
				}
				if !errors.Is(err, ErrSyntax) {
					t.Fatalf("Parse(%q) error = %v, want wrapping ErrSyntax", tt.expr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.expr, err)
			}
			if !queryEqual(got, tt.want) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseFilterSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "simple_comparison", expr: "$[?@.price < 10]"},
		{name: "existence_test", expr: "$[?@.discount]"},
		{name: "logical_and", expr: "$[?@.price < 10 && @.available]"},
		{name: "logical_or", expr: "$[?@.a == 1 || @.b == 2]"},
		{name: "negation", expr: "$[?!@.disabled]"},
		{name: "parenthesized_rfc_form", expr: "$[?(@.price < 10)]"},
		{name: "string_literal", expr: "$[?@.category == 'fiction']"},
		{name: "nested_path", expr: "$[?@.author.name == 'Herman Melville']"},
		{name: "root_subquery", expr: "$[?@.price < $.limits.max]"},
		{
			name:    "unsupported_trailing_garbage",
			expr:    "$[?@.price < 10 extra]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := Parse(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tt.expr, q)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.expr, err)
			}
			if len(q.Segments) != 1 {
				t.Fatalf("Parse(%q) segments = %d, want 1", tt.expr, len(q.Segments))
			}
			if _, ok := q.Segments[0].Selectors[0].(FilterSelector); !ok {
				t.Fatalf("Parse(%q) selector = %T, want FilterSelector", tt.expr, q.Segments[0].Selectors[0])
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func queryEqual(a, b *Query) bool {
	if len(a.Segments) != len(b.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i].Deep != b.Segments[i].Deep {
			return false
		}
		if len(a.Segments[i].Selectors) != len(b.Segments[i].Selectors) {
			return false
		}
		for j := range a.Segments[i].Selectors {
			if !selectorEqual(a.Segments[i].Selectors[j], b.Segments[i].Selectors[j]) {
				return false
			}
		}
	}
	return true
}

func selectorEqual(a, b Selector) bool {
	switch av := a.(type) {
	case NameSelector:
		bv, ok := b.(NameSelector)
		return ok && av == bv
	case WildcardSelector:
		_, ok := b.(WildcardSelector)
		return ok
	case IndexSelector:
		bv, ok := b.(IndexSelector)
		return ok && av == bv
	case SliceSelector:
		bv, ok := b.(SliceSelector)
		if !ok {
			return false
		}
		return intPtrEqual(av.Start, bv.Start) && intPtrEqual(av.End, bv.End) && intPtrEqual(av.Step, bv.Step)
	case FilterSelector:
		_, ok := b.(FilterSelector)
		return ok
	default:
		return false
	}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
