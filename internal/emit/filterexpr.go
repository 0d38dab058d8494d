package emit

import (
	"fmt"
	"strconv"

	"github.com/jacoelho/jpc/internal/ir"
)

// filterExpr renders a filter's boolean expression tree as the body of
// its pure C++ function (spec.md §4.C.7). subqueryVar names the array
// parameter holding each subquery's collected runtime result.
func filterExpr(e ir.FilterExpr, subqueryVar string) string {
	switch v := e.(type) {
	case ir.Or:
		return fmt.Sprintf("(%s || %s)", filterExpr(v.L, subqueryVar), filterExpr(v.R, subqueryVar))
	case ir.And:
		return fmt.Sprintf("(%s && %s)", filterExpr(v.L, subqueryVar), filterExpr(v.R, subqueryVar))
	case ir.Not:
		return fmt.Sprintf("(!%s)", filterExpr(v.E, subqueryVar))
	case ir.ExistenceTest:
		return fmt.Sprintf("%s[%d].exists()", subqueryVar, v.SubqueryIndex)
	case ir.Comparison:
		return fmt.Sprintf("(%s %s %s)", comparable(v.LHS, subqueryVar), v.Op.String(), comparable(v.RHS, subqueryVar))
	default:
		return "false /* unrecognized filter expression */"
	}
}

func comparable(c ir.Comparable, subqueryVar string) string {
	switch v := c.(type) {
	case ir.Literal:
		return literal(v)
	case ir.SubqueryRef:
		return fmt.Sprintf("%s[%d]", subqueryVar, v.SubqueryIndex)
	default:
		return "subquery_result{}"
	}
}

func literal(v ir.Literal) string {
	switch v.Kind {
	case ir.KindString:
		return fmt.Sprintf("subquery_result(%s)", cppStringLiteral(v.Str))
	case ir.KindInt:
		return fmt.Sprintf("subquery_result(static_cast<int64_t>(%s))", strconv.FormatInt(v.Int, 10))
	case ir.KindFloat:
		return fmt.Sprintf("subquery_result(%s)", strconv.FormatFloat(v.Flt, 'g', -1, 64))
	case ir.KindBool:
		return fmt.Sprintf("subquery_result(%t)", v.Bool)
	case ir.KindNull:
		return "subquery_result(nullptr)"
	default:
		return "subquery_result{}"
	}
}
