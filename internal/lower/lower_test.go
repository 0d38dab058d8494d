package lower

import (
	"testing"

	"github.com/jacoelho/jpc/internal/ir"
	"github.com/jacoelho/jpc/internal/query"
)

func mustParse(t *testing.T, expr string) *query.Query {
	t.Helper()
	q, err := query.Parse(expr)
	if err != nil {
		t.Fatalf("query.Parse(%q) failed: %v", expr, err)
	}
	return q
}

func TestLowerProcedureCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want int
	}{
		{name: "single_segment", expr: "$.a", want: 1},
		{name: "two_segments", expr: "$.store.book", want: 2},
		{name: "bracket_and_dot", expr: "$.a[0].b", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := mustParse(t, tt.expr)
			out, err := Lower(q, "q")
			if err != nil {
				t.Fatalf("Lower(%q) failed: %v", tt.expr, err)
			}
			if len(out.Procedures) != tt.want {
				t.Fatalf("Lower(%q) procedures = %d, want %d", tt.expr, len(out.Procedures), tt.want)
			}
			if out.SegmentCount != tt.want {
				t.Fatalf("Lower(%q) SegmentCount = %d, want %d", tt.expr, out.SegmentCount, tt.want)
			}
		})
	}
}

func TestLowerLastSegmentCapturesLeaf(t *testing.T) {
	t.Parallel()

	q := mustParse(t, "$.a")
	out, err := Lower(q, "q")
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}

	proc := out.Procedures[0]
	member, ok := findForEachMember(proc.Body)
	if !ok {
		t.Fatalf("procedure body has no ForEachMember: %+v", proc.Body)
	}

	guard, ok := member.Body[0].(ir.IfCurrentMemberNameEquals)
	if !ok {
		t.Fatalf("member body[0] = %T, want IfCurrentMemberNameEquals", member.Body[0])
	}
	if guard.Name != "a" {
		t.Fatalf("guard name = %q, want %q", guard.Name, "a")
	}
	if _, ok := guard.Body[0].(ir.SaveCurrentNodeDuringTraversal); !ok {
		t.Fatalf("leaf apply = %T, want SaveCurrentNodeDuringTraversal", guard.Body[0])
	}
}

func TestLowerMultiSegmentDescendsToNextProcedure(t *testing.T) {
	t.Parallel()

	q := mustParse(t, "$.a.b")
	out, err := Lower(q, "q")
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}

	proc := out.Procedures[0]
	member, ok := findForEachMember(proc.Body)
	if !ok {
		t.Fatalf("procedure body has no ForEachMember")
	}
	guard := member.Body[0].(ir.IfCurrentMemberNameEquals)
	call, ok := guard.Body[0].(ir.ExecuteProcedureOnChild)
	if !ok {
		t.Fatalf("non-terminal apply = %T, want ExecuteProcedureOnChild", guard.Body[0])
	}
	if call.Name != "q_selectors_1" {
		t.Fatalf("call.Name = %q, want q_selectors_1", call.Name)
	}
}

func TestLowerFilterSelectorProducesFilterProcedure(t *testing.T) {
	t.Parallel()

	q := mustParse(t, "$.items[?@.price < 10]")
	out, err := Lower(q, "q")
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}

	if len(out.Filters) != 1 {
		t.Fatalf("len(Filters) = %d, want 1", len(out.Filters))
	}
	f := out.Filters[0]
	cmp, ok := f.Expr.(ir.Comparison)
	if !ok {
		t.Fatalf("filter expr = %T, want ir.Comparison", f.Expr)
	}
	if cmp.Op != ir.CompareLT {
		t.Fatalf("filter op = %v, want CompareLT", cmp.Op)
	}
	if _, ok := cmp.LHS.(ir.SubqueryRef); !ok {
		t.Fatalf("filter LHS = %T, want SubqueryRef", cmp.LHS)
	}

	subs := out.Subqueries[f.FilterID]
	if len(subs) != 1 {
		t.Fatalf("len(Subqueries) = %d, want 1", len(subs))
	}
	if len(subs[0].Segments) != 1 || subs[0].Segments[0].Name != "price" {
		t.Fatalf("subquery segments = %+v, want single 'price' step", subs[0].Segments)
	}

	lastProc := out.Procedures[len(out.Procedures)-1]
	if !lastProc.FilterActive {
		t.Fatalf("procedure with filter selector should have FilterActive = true")
	}
}

func TestLowerDeepSegmentRecursesIntoItself(t *testing.T) {
	t.Parallel()

	q := mustParse(t, "$..price")
	out, err := Lower(q, "q")
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}

	proc := out.Procedures[0]
	member, ok := findForEachMember(proc.Body)
	if !ok {
		t.Fatalf("procedure body has no ForEachMember")
	}

	foundSelfCall := false
	for _, instr := range member.Body {
		if call, ok := instr.(ir.ExecuteProcedureOnChild); ok && call.Name == proc.Name {
			foundSelfCall = true
			if len(call.Conditions) != out.SegmentCount {
				// $..price has a single segment: Conditions must carry one
				// entry (the §3 invariant), not a nil/empty slice, or the
				// renderer's per-segment inherit loop never runs.
				t.Fatalf("self-call Conditions length = %d, want %d (one per query segment)", len(call.Conditions), out.SegmentCount)
			}
		}
	}
	if !foundSelfCall {
		t.Fatalf("deep segment procedure %q does not recurse into itself: %+v", proc.Name, member.Body)
	}
}

// TestLowerDeepSegmentSelfCallThreadsInheritedConditions guards against a
// regression where a descendant segment's self-call built its Conditions
// as a nil/empty slice: executeProcedureOnChild only copies an inherited
// segment_conditions[i] for indices present in Conditions, so an
// all-empty slice silently drops every condition contributed by an
// ancestor filter when recursing into a deep segment beneath it.
func TestLowerDeepSegmentSelfCallThreadsInheritedConditions(t *testing.T) {
	t.Parallel()

	q := mustParse(t, "$[?@.x]..y")
	out, err := Lower(q, "q")
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}

	var selfCall *ir.ExecuteProcedureOnChild
	for _, proc := range out.Procedures {
		member, ok := findForEachMember(proc.Body)
		if !ok {
			continue
		}
		for _, instr := range member.Body {
			if call, ok := instr.(ir.ExecuteProcedureOnChild); ok && call.Name == proc.Name {
				c := call
				selfCall = &c
			}
		}
		element, ok := findForEachElement(proc.Body)
		if !ok {
			continue
		}
		for _, instr := range element.Body {
			if call, ok := instr.(ir.ExecuteProcedureOnChild); ok && call.Name == proc.Name {
				c := call
				selfCall = &c
			}
		}
	}
	if selfCall == nil {
		t.Fatalf("no deep-segment self-call found in %+v", out.Procedures)
	}
	if len(selfCall.Conditions) != out.SegmentCount {
		t.Fatalf("self-call Conditions length = %d, want %d (one per query segment, all nil to inherit)", len(selfCall.Conditions), out.SegmentCount)
	}
	for i, cond := range selfCall.Conditions {
		if cond != nil {
			t.Fatalf("self-call Conditions[%d] = %v, want nil (a deep segment contributes no new refinement of its own)", i, cond)
		}
	}
}

func findForEachMember(body []ir.Instruction) (ir.ForEachMember, bool) {
	for _, instr := range body {
		if m, ok := instr.(ir.ForEachMember); ok {
			return m, true
		}
	}
	return ir.ForEachMember{}, false
}

func findForEachElement(body []ir.Instruction) (ir.ForEachElement, bool) {
	for _, instr := range body {
		if m, ok := instr.(ir.ForEachElement); ok {
			return m, true
		}
	}
	return ir.ForEachElement{}, false
}
