package ir

import "fmt"

// FilterExpr is the tree form of a filter selector's boolean expression
// (spec §3, "Filter expression").
type FilterExpr interface {
	isFilterExpr()
}

// Or is the logical disjunction of two filter expressions.
type Or struct{ L, R FilterExpr }

// And is the logical conjunction of two filter expressions.
type And struct{ L, R FilterExpr }

// Not negates a filter expression.
type Not struct{ E FilterExpr }

// Comparison compares two Comparables with Op.
type Comparison struct {
	LHS, RHS Comparable
	Op       CompareOp
}

// ExistenceTest is truthy iff the subquery identified by SubqueryIndex
// matched at least one node.
type ExistenceTest struct {
	SubqueryIndex int
}

func (Or) isFilterExpr()            {}
func (And) isFilterExpr()           {}
func (Not) isFilterExpr()           {}
func (Comparison) isFilterExpr()    {}
func (ExistenceTest) isFilterExpr() {}

// CompareOp is one of the six RFC 9535 comparison operators.
type CompareOp int

const (
	CompareEQ CompareOp = iota
	CompareNE
	CompareLT
	CompareLE
	CompareGT
	CompareGE
)

func (op CompareOp) String() string {
	switch op {
	case CompareEQ:
		return "=="
	case CompareNE:
		return "!="
	case CompareLT:
		return "<"
	case CompareLE:
		return "<="
	case CompareGT:
		return ">"
	case CompareGE:
		return ">="
	default:
		return fmt.Sprintf("CompareOp(%d)", int(op))
	}
}

// Comparable is a value usable on either side of a filter comparison
// (spec §3, "Comparable"). A leaf is either a Literal or a reference to
// a Subquery's collected result.
type Comparable interface {
	isComparable()
}

// Literal is a compile-time-known comparand.
type Literal struct {
	Kind LiteralKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	// Object/Array literals are not supported by this compiler's filter
	// grammar (see SPEC_FULL.md §4.Front-end): RFC 9535 itself only
	// permits them as the *subject* of an equality test via a subquery,
	// never as a literal on the wire syntax. LiteralKind never reports
	// KindObject/KindArray for a value constructed by internal/query.
}

// LiteralKind discriminates the Comparable/Literal payload, mirroring
// spec §3's Comparable variant list for literal values.
type LiteralKind int

const (
	KindString LiteralKind = iota
	KindInt
	KindFloat
	KindBool
	KindNull
	KindNothing
	KindObject
	KindArray
)

// SubqueryRef is a Comparable referring to the value collected by one of
// the enclosing filter's subqueries at runtime.
type SubqueryRef struct {
	SubqueryIndex int
}

func (Literal) isComparable()     {}
func (SubqueryRef) isComparable() {}

// SubquerySegment is one linked step of a filter subquery path (spec §3,
// "Subquery path segment"). Name steps ignore Index; index steps with a
// negative Index require the containing array's length at runtime.
type SubquerySegment struct {
	IsName bool
	Name   string
	Index  int
}

// Subquery is a singular JSONPath path, plus whether it is used only as
// an existence test (spec §3, "Filter subquery"). FromRoot distinguishes
// a '$'-rooted subquery (resolved against the whole document, cursor
// seeded at the query's root on every filter instance) from the default
// '@'-rooted one (resolved against the filter's candidate node).
type Subquery struct {
	FromRoot        bool
	Segments        []SubquerySegment
	IsExistenceTest bool
}
