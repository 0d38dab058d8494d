// Package ir defines the typed intermediate representation of a compiled
// JSONPath query: the procedure graph the emitted program embeds, the
// filter-expression trees evaluated against subquery results, and the
// selection-condition trees used to defer per-node selection decisions.
//
// Every sum type in this package (Instruction, SelectionCondition,
// FilterExpr, Comparable) follows the same Go idiom the rest of this
// module uses for closed variant sets: an interface with an unexported
// marker method, implemented by one struct per variant.
package ir

// Instruction is one step of an IR procedure body.
type Instruction interface {
	isInstruction()
}

// ForEachMember iterates the members of the current object node,
// executing Body once per member with current-node data describing the
// member's key.
type ForEachMember struct {
	Body []Instruction
}

// ForEachElement iterates the elements of the current array node,
// executing Body once per element with current-node data describing the
// element's index (and array length, when needed).
type ForEachElement struct {
	Body []Instruction
}

// IfCurrentIndexEquals guards Body on the current array index equaling
// Index (a non-negative index selector).
type IfCurrentIndexEquals struct {
	Index int
	Body  []Instruction
}

// IfCurrentIndexFromEndEquals guards Body on ArrayLength-Index equaling
// the current array index (a negative index selector, magnitude Index).
type IfCurrentIndexFromEndEquals struct {
	Index int
	Body  []Instruction
}

// IfCurrentMemberNameEquals guards Body on the current object member's
// key equaling Name.
type IfCurrentMemberNameEquals struct {
	Name string
	Body []Instruction
}

// IfIndexInSlice guards Body on the current array index falling inside
// a Python-style [Start:End:Step) range, resolved against ArrayLength at
// emission time per spec §3's slice semantics. Nil Start/End/Step mean
// the RFC 9535 default for that bound and the slice's sign.
type IfIndexInSlice struct {
	Start *int
	End   *int
	Step  *int
	Body  []Instruction
}

// IfActiveFilterInstance guards Body on at least one filter instance
// being live; it wraps work that is pointless to perform (e.g. subtree
// capture bookkeeping) while no filter is in flight.
type IfActiveFilterInstance struct {
	Body []Instruction
}

// ExecuteProcedureOnChild descends into the named IR procedure on the
// current child node, passing refined per-segment selection conditions.
//
// Conditions has exactly as many entries as the query has segments
// (invariant from spec §3); a nil entry means "no new condition
// contributed by this segment for that target segment index".
// Segments is never populated by internal/lower and is always empty;
// nothing in internal/emit reads it.
type ExecuteProcedureOnChild struct {
	Name       string
	Conditions []SelectionCondition
	Segments   []int
}

// SaveCurrentNodeDuringTraversal marks the start of a captured subtree:
// a result-buffer record is opened (allocating a buffer if none is
// active), Body executes (writing the serialized value), and the record
// is closed with the buffer's length once Body returns. Condition, if
// non-nil, attaches a deferred selection condition to the record.
type SaveCurrentNodeDuringTraversal struct {
	Condition SelectionCondition
	Body      []Instruction
}

// TraverseCurrentNodeSubtree copies the raw JSON of the current node
// into the active result buffer (if any) and recursively descends,
// advancing any live subquery cursors as it goes.
type TraverseCurrentNodeSubtree struct{}

// Continue skips the remainder of the enclosing iteration.
type Continue struct{}

// StartFilterExecution allocates a new filter instance for FilterID and
// pushes it into the live set for the enclosing child iteration.
type StartFilterExecution struct {
	FilterID FilterID
}

// EndFiltersExecution pops every filter instance pushed by the matching
// StartFilterExecution in this iteration. It does not evaluate or cache
// the popped instance's boolean result, under eager evaluation or not.
type EndFiltersExecution struct{}

// UpdateSubqueriesState advances every live filter instance's subquery
// cursors by one step, based on the current node.
type UpdateSubqueriesState struct{}

func (ForEachMember) isInstruction()               {}
func (ForEachElement) isInstruction()              {}
func (IfCurrentIndexEquals) isInstruction()        {}
func (IfCurrentIndexFromEndEquals) isInstruction() {}
func (IfCurrentMemberNameEquals) isInstruction()   {}
func (IfIndexInSlice) isInstruction()              {}
func (IfActiveFilterInstance) isInstruction()      {}
func (ExecuteProcedureOnChild) isInstruction()     {}
func (SaveCurrentNodeDuringTraversal) isInstruction() {}
func (TraverseCurrentNodeSubtree) isInstruction()  {}
func (Continue) isInstruction()                    {}
func (StartFilterExecution) isInstruction()        {}
func (EndFiltersExecution) isInstruction()         {}
func (UpdateSubqueriesState) isInstruction()       {}

// Procedure is a named, ordered list of instructions. Procedures are
// named "selectors_<k>" for segment k, optionally suffixed to
// disambiguate descendant-segment recursion targets.
type Procedure struct {
	Name          string
	Body          []Instruction
	FilterActive  bool // invoked at least once in a filter-active context
}

// FilterID identifies a filter selector by its position in the query.
type FilterID struct {
	SegmentIndex  int
	SelectorIndex int
}

// FilterProcedure is the pure boolean function lowered from one filter
// selector's expression tree (spec §4.C.7).
type FilterProcedure struct {
	FilterID FilterID
	Name     string
	Expr     FilterExpr
}

// QueryIR is one compiled query: its procedure graph plus the auxiliary
// tables the emitted runtime needs (filter functions, subquery paths).
type QueryIR struct {
	Name         string
	SegmentCount int
	Procedures   []*Procedure
	Filters      []*FilterProcedure
	Subqueries   map[FilterID][]Subquery
}

// MaxSubqueries returns the largest subquery count across all filters in
// the query, i.e. spec §3's compile-time MAX_SUBQUERIES constant for
// this query. Callers compiling several queries into one translation
// unit take the max across all of them (spec §3, "Filter subquery").
func (q *QueryIR) MaxSubqueries() int {
	max := 0
	for _, subs := range q.Subqueries {
		if len(subs) > max {
			max = len(subs)
		}
	}
	return max
}

// Program is the full compiler output for one invocation: one QueryIR
// per named query, in the order the user supplied them.
type Program struct {
	Queries []*QueryIR
}

// MaxSubqueries returns the largest per-filter subquery count across
// every query in the program — the MAX_SUBQUERIES_IN_FILTER constant
// shared by one translation unit (spec §3).
func (p *Program) MaxSubqueries() int {
	max := 0
	for _, q := range p.Queries {
		if n := q.MaxSubqueries(); n > max {
			max = n
		}
	}
	return max
}
