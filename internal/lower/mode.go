package lower

import "github.com/jacoelho/jpc/internal/ir"

// ErrFiltersUnderDOM reports a filter selector in a query compiled for
// --mode=dom, the one combination SPEC_FULL.md's expansion of the
// original spec leaves unsupported (spec.md §9): a materialized DOM
// traversal has no streaming cursor to carry segment_conditions/filter
// instance bookkeeping across, so reproducing §4.C's state machine over
// dom::element would mean re-deriving most of it from scratch.
type ErrFiltersUnderDOM struct {
	QueryName string
}

func (e *ErrFiltersUnderDOM) Error() string {
	return "query " + e.QueryName + ": --mode=dom does not support filter selectors"
}

// RejectFiltersUnderDOM returns a non-nil error if q has any filter
// selector. Callers compiling for --mode=dom must invoke this once per
// query immediately after Lower and map a non-nil result to exit code 2
// ("unsupported feature", internal/exit).
func RejectFiltersUnderDOM(q *ir.QueryIR) error {
	if len(q.Filters) > 0 {
		return &ErrFiltersUnderDOM{QueryName: q.Name}
	}
	return nil
}
