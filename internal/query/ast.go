// Package query is jpc's JSONPath front end. It tokenizes and parses a
// JSONPath expression (plus the boolean grammar of its filter
// selectors) into an AST that internal/lower consumes.
//
// The recursive-descent shape of the segment/selector parser in this
// file and in parser.go is grounded on the teacher's own hand-rolled
// streaming-matcher front end (internal/jsonpath/compiler.go in the
// repository this package was adapted from); the filter-expression
// lexer/parser in filterlex.go and filterparse.go are grounded on that
// same repository's internal/rq/expr lexer/parser, generalized from a
// flat variable-lookup grammar to JSONPath's @-relative-path grammar.
package query

// Query is a parsed JSONPath expression: an ordered list of segments.
type Query struct {
	Segments []Segment
}

// Segment is one step of a query. Deep marks a descendant ('..')
// segment; otherwise the segment matches direct children only.
type Segment struct {
	Deep      bool
	Selectors []Selector
}

// Selector is the closed set of RFC 9535 selector kinds this compiler
// supports.
type Selector interface {
	isSelector()
}

// NameSelector matches an object member by literal name.
type NameSelector struct {
	Name string
}

// WildcardSelector matches every child of the current node.
type WildcardSelector struct{}

// IndexSelector matches an array element by signed integer index.
// Negative values index from the end of the array.
type IndexSelector struct {
	Index int
}

// SliceSelector matches array elements in [Start:End:Step). A nil field
// means "unspecified" (RFC 9535 default semantics: Start defaults to 0
// forward / len-1 backward, End defaults to len forward / -1 backward,
// Step defaults to 1). Start/End may be negative.
type SliceSelector struct {
	Start *int
	End   *int
	Step  *int
}

// FilterSelector selects nodes for which Expr evaluates true.
type FilterSelector struct {
	Expr FilterExpr
}

func (NameSelector) isSelector()     {}
func (WildcardSelector) isSelector() {}
func (IndexSelector) isSelector()    {}
func (SliceSelector) isSelector()    {}
func (FilterSelector) isSelector()   {}
