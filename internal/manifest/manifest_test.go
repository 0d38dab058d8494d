package manifest

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid_two_queries",
			doc: `
queries:
  - name: books
    path: "$.store.book[*]"
  - name: cheap_books
    path: "$.store.book[?@.price < 10]"
`,
		},
		{
			name:    "empty_manifest",
			doc:     `queries: []`,
			wantErr: true,
		},
		{
			name: "duplicate_names",
			doc: `
queries:
  - name: a
    path: "$.x"
  - name: a
    path: "$.y"
`,
			wantErr: true,
		},
		{
			name: "invalid_symbol_name",
			doc: `
queries:
  - name: "bad name"
    path: "$.x"
`,
			wantErr: true,
		},
		{
			name: "invalid_query_syntax",
			doc: `
queries:
  - name: broken
    path: "not a jsonpath"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Parse(strings.NewReader(tt.doc))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tt.doc, m)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.doc, err)
			}
			if len(m.Queries) == 0 {
				t.Fatalf("Parse(%q) returned no queries", tt.doc)
			}
		})
	}
}
