package query

import (
	"fmt"

	"github.com/theory/jsonpath"
)

// Validate checks expr against RFC 9535's full grammar using
// theory/jsonpath, a third-party implementation whose own AST types are
// unexported and therefore unsuitable as this compiler's internal
// representation. This compiler's own parser (Parse, parser.go) then
// builds the AST that internal/lower consumes; Validate exists so that
// RFC 9535 syntax errors are reported by a conformance-tested parser
// before this narrower compiler's own grammar runs.
func Validate(expr string) error {
	if _, err := jsonpath.Parse(expr); err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return nil
}

// ParseValidated runs Validate followed by Parse, the sequence every
// production entry point into this package should use. An expression
// Validate accepts but Parse rejects is valid RFC 9535 outside this
// compiler's grammar, so that error also wraps ErrNotSupported.
func ParseValidated(expr string) (*Query, error) {
	if err := Validate(expr); err != nil {
		return nil, err
	}
	q, err := Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSupported, err)
	}
	return q, nil
}
