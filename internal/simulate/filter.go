package simulate

import (
	"fmt"

	"github.com/jacoelho/jpc/internal/query"
)

// nothing marks the absence of a value, distinct from JSON null,
// matching spec.md §3's Comparable::Nothing variant (what a failed
// subquery resolution yields).
type nothing struct{}

func evalFilter(e query.FilterExpr, candidate, root any) (bool, error) {
	switch v := e.(type) {
	case query.FilterAnd:
		l, err := evalFilter(v.L, candidate, root)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return evalFilter(v.R, candidate, root)

	case query.FilterOr:
		l, err := evalFilter(v.L, candidate, root)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalFilter(v.R, candidate, root)

	case query.FilterNot:
		r, err := evalFilter(v.E, candidate, root)
		if err != nil {
			return false, err
		}
		return !r, nil

	case query.FilterExists:
		results, err := resolveRelPath(v.Path, candidate, root)
		if err != nil {
			return false, err
		}
		return len(results) > 0, nil

	case query.FilterComparison:
		lhs, err := resolveComparand(v.LHS, candidate, root)
		if err != nil {
			return false, err
		}
		rhs, err := resolveComparand(v.RHS, candidate, root)
		if err != nil {
			return false, err
		}
		return compare(lhs, rhs, v.Op), nil

	default:
		return false, fmt.Errorf("%w: filter expression %T", query.ErrNotSupported, e)
	}
}

func resolveComparand(c query.Comparand, candidate, root any) (any, error) {
	switch v := c.(type) {
	case query.LitString:
		return v.Value, nil
	case query.LitNumber:
		if v.IsInt {
			return v.IntVal, nil
		}
		return v.Value, nil
	case query.LitBool:
		return v.Value, nil
	case query.LitNull:
		return nil, nil
	case query.RelPath:
		results, err := resolveRelPath(v, candidate, root)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nothing{}, nil
		}
		return results[0], nil
	default:
		return nil, fmt.Errorf("%w: comparand %T", query.ErrNotSupported, c)
	}
}

// resolveRelPath walks a singular path (name/index steps only) from its
// root: '@' resolves from candidate, '$' from root.
func resolveRelPath(rp query.RelPath, candidate, root any) ([]any, error) {
	cur := candidate
	if rp.FromRoot {
		cur = root
	}
	for _, step := range rp.Steps {
		if step.IsName {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, nil
			}
			v, ok := obj[step.Name]
			if !ok {
				return nil, nil
			}
			cur = v
			continue
		}
		arr, ok := cur.([]any)
		if !ok {
			return nil, nil
		}
		idx := step.Index
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return nil, nil
		}
		cur = arr[idx]
	}
	return []any{cur}, nil
}

// compare implements spec.md §3's six-operator comparison semantics:
// equality is defined over every Comparable kind, ordering only over
// numbers and strings; any other pairing is false for every operator
// except != (where it is true).
func compare(lhs, rhs any, op query.CompareOp) bool {
	if _, ok := lhs.(nothing); ok {
		return compareNothing(rhs, op)
	}
	if _, ok := rhs.(nothing); ok {
		return compareNothing(lhs, op)
	}

	if lf, ok := asFloat(lhs); ok {
		if rf, ok := asFloat(rhs); ok {
			return compareOrdered(lf, rf, op)
		}
	}
	if ls, ok := lhs.(string); ok {
		if rs, ok := rhs.(string); ok {
			return compareOrdered(compareStrings(ls, rs), 0, op)
		}
	}

	switch op {
	case query.CompareEQ:
		return deepEqual(lhs, rhs)
	case query.CompareNE:
		return !deepEqual(lhs, rhs)
	default:
		return false
	}
}

func compareNothing(other any, op query.CompareOp) bool {
	_, otherIsNothing := other.(nothing)
	switch op {
	case query.CompareEQ:
		return otherIsNothing
	case query.CompareNE:
		return !otherIsNothing
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareStrings(a, b string) float64 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(a, b float64, op query.CompareOp) bool {
	switch op {
	case query.CompareEQ:
		return a == b
	case query.CompareNE:
		return a != b
	case query.CompareLT:
		return a < b
	case query.CompareLE:
		return a <= b
	case query.CompareGT:
		return a > b
	case query.CompareGE:
		return a >= b
	default:
		return false
	}
}

func deepEqual(a, b any) bool {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !deepEqual(av, bv) {
				return false
			}
		}
		return true
	}

	aa, aok := a.([]any)
	ba, bok := b.([]any)
	if aok && bok {
		if len(aa) != len(ba) {
			return false
		}
		for i := range aa {
			if !deepEqual(aa[i], ba[i]) {
				return false
			}
		}
		return true
	}

	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
	}

	return a == b
}
