package lower

import (
	"fmt"
	"strings"

	"github.com/jacoelho/jpc/internal/ir"
	"github.com/jacoelho/jpc/internal/query"
)

// subqueryCollector assigns stable subquery indices to the distinct
// relative paths one filter expression references, deduplicating by
// structural equality and by whether the reference is an existence
// test or a value comparand (the same path can be used both ways in
// one filter, e.g. "@.a && @.a == 1", and gets one slot per use).
type subqueryCollector struct {
	subs  []ir.Subquery
	index map[string]int
}

func (c *subqueryCollector) add(rp query.RelPath, existence bool) int {
	key := subqueryKey(rp, existence)
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if idx, ok := c.index[key]; ok {
		return idx
	}

	segs := make([]ir.SubquerySegment, len(rp.Steps))
	for i, step := range rp.Steps {
		segs[i] = ir.SubquerySegment{IsName: step.IsName, Name: step.Name, Index: step.Index}
	}

	idx := len(c.subs)
	c.subs = append(c.subs, ir.Subquery{FromRoot: rp.FromRoot, Segments: segs, IsExistenceTest: existence})
	c.index[key] = idx
	return idx
}

func subqueryKey(rp query.RelPath, existence bool) string {
	var b strings.Builder
	if existence {
		b.WriteString("E")
	} else {
		b.WriteString("V")
	}
	if rp.FromRoot {
		b.WriteString("$")
	} else {
		b.WriteString("@")
	}
	for _, s := range rp.Steps {
		if s.IsName {
			fmt.Fprintf(&b, ".%s", s.Name)
		} else {
			fmt.Fprintf(&b, "[%d]", s.Index)
		}
	}
	return b.String()
}

// lowerFilterExpr turns a filter's boolean expression tree into IR,
// recording every relative path it touches into col.
func lowerFilterExpr(e query.FilterExpr, col *subqueryCollector) (ir.FilterExpr, error) {
	switch v := e.(type) {
	case query.FilterOr:
		l, err := lowerFilterExpr(v.L, col)
		if err != nil {
			return nil, err
		}
		r, err := lowerFilterExpr(v.R, col)
		if err != nil {
			return nil, err
		}
		return ir.Or{L: l, R: r}, nil

	case query.FilterAnd:
		l, err := lowerFilterExpr(v.L, col)
		if err != nil {
			return nil, err
		}
		r, err := lowerFilterExpr(v.R, col)
		if err != nil {
			return nil, err
		}
		return ir.And{L: l, R: r}, nil

	case query.FilterNot:
		inner, err := lowerFilterExpr(v.E, col)
		if err != nil {
			return nil, err
		}
		return ir.Not{E: inner}, nil

	case query.FilterExists:
		idx := col.add(v.Path, true)
		return ir.ExistenceTest{SubqueryIndex: idx}, nil

	case query.FilterComparison:
		lhs, err := lowerComparand(v.LHS, col)
		if err != nil {
			return nil, err
		}
		rhs, err := lowerComparand(v.RHS, col)
		if err != nil {
			return nil, err
		}
		return ir.Comparison{LHS: lhs, RHS: rhs, Op: ir.CompareOp(v.Op)}, nil

	default:
		return nil, fmt.Errorf("%w: filter expression %T", query.ErrNotSupported, e)
	}
}

func lowerComparand(c query.Comparand, col *subqueryCollector) (ir.Comparable, error) {
	switch v := c.(type) {
	case query.LitString:
		return ir.Literal{Kind: ir.KindString, Str: v.Value}, nil
	case query.LitNumber:
		if v.IsInt {
			return ir.Literal{Kind: ir.KindInt, Int: v.IntVal}, nil
		}
		return ir.Literal{Kind: ir.KindFloat, Flt: v.Value}, nil
	case query.LitBool:
		return ir.Literal{Kind: ir.KindBool, Bool: v.Value}, nil
	case query.LitNull:
		return ir.Literal{Kind: ir.KindNull}, nil
	case query.RelPath:
		idx := col.add(v, false)
		return ir.SubqueryRef{SubqueryIndex: idx}, nil
	default:
		return nil, fmt.Errorf("%w: comparand %T", query.ErrNotSupported, c)
	}
}
