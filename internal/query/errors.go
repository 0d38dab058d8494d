package query

import "errors"

var (
	// ErrSyntax indicates a JSONPath expression syntax error during parsing.
	ErrSyntax = errors.New("jpc/query: syntax error")

	// ErrNotSupported indicates a syntactically valid RFC 9535 feature
	// this compiler cannot turn into IR. ParseValidated returns it when
	// Validate accepts an expression that Parse's narrower grammar
	// rejects, so unsupported constructs are rejected before lowering.
	ErrNotSupported = errors.New("jpc/query: feature not supported by this compiler")
)
