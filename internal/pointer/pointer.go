// Package pointer implements RFC 6901 JSON Pointer encoding for the
// paths internal/simulate attaches to each match, which jpc run (cmd/
// jpc/debug.go) reports alongside the matched value (SPEC_FULL.md's
// "Supplemented: reference simulator" section). Escaping is hand-rolled
// (RFC 6901 is two string
// substitutions); Resolve cross-checks the result against
// github.com/go-openapi/jsonpointer, an independently written
// implementation, to catch any path this package's own encoder gets
// wrong.
package pointer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// EncodeToken escapes one reference token per RFC 6901 §3: '~' becomes
// '~0' and '/' becomes '~1', in that order.
func EncodeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return token
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	token = strings.ReplaceAll(token, "~0", "~")
	return token
}

// Segment is one step of a result path: either a named object member or
// an array index.
type Segment struct {
	IsName bool
	Name   string
	Index  int
}

// Encode renders segs as an RFC 6901 JSON Pointer string, e.g.
// []Segment{{IsName:true,Name:"store"},{Index:0}} -> "/store/0".
func Encode(segs []Segment) string {
	if len(segs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.IsName {
			b.WriteString(EncodeToken(s.Name))
		} else {
			b.WriteString(strconv.Itoa(s.Index))
		}
	}
	return b.String()
}

// Resolve cross-checks ptr against document using go-openapi/jsonpointer,
// an independently maintained RFC 6901 implementation, returning the
// value it resolves to. pointer_test.go uses this to confirm that a
// path Encode produces actually addresses the node it claims to.
func Resolve(ptr string, document any) (any, error) {
	p, err := jsonpointer.New(ptr)
	if err != nil {
		return nil, fmt.Errorf("pointer: invalid RFC 6901 pointer %q: %w", ptr, err)
	}
	v, _, err := p.Get(document)
	if err != nil {
		return nil, fmt.Errorf("pointer: resolving %q: %w", ptr, err)
	}
	return v, nil
}
