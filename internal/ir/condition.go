package ir

// SelectionCondition is a deferred boolean expression attached to a
// candidate node, resolved once its constituent filters become
// determinate (spec §3, "Selection condition"). A nil SelectionCondition
// means "known true" throughout this package, matching the emitted
// runtime's convention that a null condition pointer is always satisfied
// (spec §4.C.6).
type SelectionCondition interface {
	isSelectionCondition()
}

// CondAnd is the conjunction of two selection conditions.
type CondAnd struct{ L, R SelectionCondition }

// CondOr is the disjunction of two selection conditions.
type CondOr struct{ L, R SelectionCondition }

// CondFilter defers to the boolean result of one filter instance,
// referenced by its FilterID (spec represents this as a runtime
// instance pointer; the IR only needs the static FilterID since each
// ExecuteProcedureOnChild site has exactly one candidate instance alive
// for a given filter at a time).
type CondFilter struct{ FilterID FilterID }

// CondAlwaysTrue is a folded, known-true leaf.
type CondAlwaysTrue struct{}

// CondAlwaysFalse is a folded, known-false leaf.
type CondAlwaysFalse struct{}

func (CondAnd) isSelectionCondition()        {}
func (CondOr) isSelectionCondition()         {}
func (CondFilter) isSelectionCondition()     {}
func (CondAlwaysTrue) isSelectionCondition() {}
func (CondAlwaysFalse) isSelectionCondition(){}

// TryEvaluate implements spec §4.C.6's tri-valued try_evaluate: it
// reports whether cond's truth value is already known, using lookup to
// resolve CondFilter leaves (lookup returns (value, known)). A nil
// condition is always known-true.
//
// No package in this module calls it: internal/simulate evaluates
// filters straight from the query AST, and the emitted C++ performs the
// equivalent short-circuit walk itself (emit/templates/runtime.tmpl).
func TryEvaluate(cond SelectionCondition, lookup func(FilterID) (bool, bool)) (value, known bool) {
	if cond == nil {
		return true, true
	}
	switch c := cond.(type) {
	case CondAlwaysTrue:
		return true, true
	case CondAlwaysFalse:
		return false, true
	case CondFilter:
		return lookup(c.FilterID)
	case CondAnd:
		lv, lk := TryEvaluate(c.L, lookup)
		if lk && !lv {
			return false, true
		}
		rv, rk := TryEvaluate(c.R, lookup)
		if rk && !rv {
			return false, true
		}
		if lk && rk {
			return true, true
		}
		return false, false
	case CondOr:
		lv, lk := TryEvaluate(c.L, lookup)
		if lk && lv {
			return true, true
		}
		rv, rk := TryEvaluate(c.R, lookup)
		if rk && rv {
			return true, true
		}
		if lk && rk {
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

// AndConditions combines l and r with logical AND, applying the short-circuit
// simplifications a nil operand implies ("no condition contributed"
// means "always true" for that operand).
func AndConditions(l, r SelectionCondition) SelectionCondition {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return CondAnd{L: l, R: r}
}
