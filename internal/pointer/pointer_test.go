package pointer

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		segs []Segment
		want string
	}{
		{name: "empty", segs: nil, want: ""},
		{name: "single_name", segs: []Segment{{IsName: true, Name: "store"}}, want: "/store"},
		{
			name: "name_then_index",
			segs: []Segment{{IsName: true, Name: "book"}, {Index: 2}},
			want: "/book/2",
		},
		{
			name: "escaped_tilde_and_slash",
			segs: []Segment{{IsName: true, Name: "a/b~c"}},
			want: "/a~1b~0c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Encode(tt.segs); got != tt.want {
				t.Fatalf("Encode(%+v) = %q, want %q", tt.segs, got, tt.want)
			}
		})
	}
}

func TestEncodeTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := []string{"plain", "a/b", "a~b", "a~1b", "", "~/~"}
	for _, tok := range tokens {
		if got := DecodeToken(EncodeToken(tok)); got != tok {
			t.Fatalf("round-trip(%q) = %q, want %q", tok, got, tok)
		}
	}
}

func TestResolveCrossCheck(t *testing.T) {
	t.Parallel()

	var doc any
	if err := json.Unmarshal([]byte(`{"store":{"book":[{"title":"a"},{"title":"b"}]}}`), &doc); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}

	ptr := Encode([]Segment{{IsName: true, Name: "store"}, {IsName: true, Name: "book"}, {Index: 1}, {IsName: true, Name: "title"}})

	got, err := Resolve(ptr, doc)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", ptr, err)
	}
	if !reflect.DeepEqual(got, "b") {
		t.Fatalf("Resolve(%q) = %v, want %q", ptr, got, "b")
	}
}
