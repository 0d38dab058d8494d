// Package lower turns a validated query.Query into an ir.QueryIR: one
// named traversal procedure per segment, one boolean function per
// filter selector, and the subquery path tables the runtime's cursor
// advancement needs. It implements the seven-step lowering algorithm
// grounded on the teacher's own AST-to-execution translation
// (internal/jsonpath/matcher.go's segment/selector recursion), adapted
// from "walk the tree and match" to "emit the procedure that would walk
// the tree and match".
package lower

import (
	"fmt"

	"github.com/jacoelho/jpc/internal/ir"
	"github.com/jacoelho/jpc/internal/query"
)

// Lower builds the IR for one query, named name (the prefix every
// emitted procedure, filter function and subquery symbol carries so
// multiple queries can share one translation unit).
func Lower(q *query.Query, name string) (*ir.QueryIR, error) {
	l := &lowerer{name: name, segs: q.Segments, subqueries: map[ir.FilterID][]ir.Subquery{}}

	if err := l.collectFilters(); err != nil {
		return nil, err
	}
	l.anyFilters = len(l.filters) > 0

	procs := make([]*ir.Procedure, 0, len(l.segs))
	for k := range l.segs {
		proc, err := l.buildProcedure(k)
		if err != nil {
			return nil, err
		}
		procs = append(procs, proc)
	}

	return &ir.QueryIR{
		Name:         name,
		SegmentCount: len(l.segs),
		Procedures:   procs,
		Filters:      l.filters,
		Subqueries:   l.subqueries,
	}, nil
}

type lowerer struct {
	name       string
	segs       []query.Segment
	filters    []*ir.FilterProcedure
	subqueries map[ir.FilterID][]ir.Subquery
	anyFilters bool // true once any segment in this query has a filter selector
}

func procName(name string, k int) string {
	return fmt.Sprintf("%s_selectors_%d", name, k)
}

func filterName(name string, id ir.FilterID) string {
	return fmt.Sprintf("%s_filter_%d_%d", name, id.SegmentIndex, id.SelectorIndex)
}

// collectFilters lowers every filter selector's expression tree up
// front (step 5: "for each filter expression, collect all relative
// paths it references ... assign each a stable subquery_index"), since
// buildProcedure only needs the resulting FilterID, not the expression
// itself.
func (l *lowerer) collectFilters() error {
	for k, seg := range l.segs {
		for si, sel := range seg.Selectors {
			fs, ok := sel.(query.FilterSelector)
			if !ok {
				continue
			}
			id := ir.FilterID{SegmentIndex: k, SelectorIndex: si}

			col := &subqueryCollector{}
			expr, err := lowerFilterExpr(fs.Expr, col)
			if err != nil {
				return fmt.Errorf("lowering filter at segment %d selector %d: %w", k, si, err)
			}

			l.filters = append(l.filters, &ir.FilterProcedure{
				FilterID: id,
				Name:     filterName(l.name, id),
				Expr:     expr,
			})
			l.subqueries[id] = col.subs
		}
	}
	return nil
}

// buildProcedure lowers segment k into its traversal procedure
// (steps 1-4 and 6 of the algorithm). It emits no IfActiveFilterInstance
// guard: step 7 is not performed by this package.
func (l *lowerer) buildProcedure(k int) (*ir.Procedure, error) {
	seg := l.segs[k]
	last := k == len(l.segs)-1

	var memberBody, elementBody []ir.Instruction

	for si, sel := range seg.Selectors {
		switch s := sel.(type) {
		case query.NameSelector:
			apply := l.applyFragment(k, last, nil)
			memberBody = append(memberBody, ir.IfCurrentMemberNameEquals{Name: s.Name, Body: []ir.Instruction{apply}})

		case query.WildcardSelector:
			apply := l.applyFragment(k, last, nil)
			memberBody = append(memberBody, apply)
			elementBody = append(elementBody, apply)

		case query.IndexSelector:
			apply := l.applyFragment(k, last, nil)
			if s.Index >= 0 {
				elementBody = append(elementBody, ir.IfCurrentIndexEquals{Index: s.Index, Body: []ir.Instruction{apply}})
			} else {
				elementBody = append(elementBody, ir.IfCurrentIndexFromEndEquals{Index: -s.Index, Body: []ir.Instruction{apply}})
			}

		case query.SliceSelector:
			apply := l.applyFragment(k, last, nil)
			elementBody = append(elementBody, ir.IfIndexInSlice{
				Start: s.Start, End: s.End, Step: s.Step,
				Body: []ir.Instruction{apply},
			})

		case query.FilterSelector:
			id := ir.FilterID{SegmentIndex: k, SelectorIndex: si}
			apply := l.applyFragment(k, last, ir.CondFilter{FilterID: id})
			// A fresh filter instance is pushed and popped per candidate
			// (spec.md §4.C.5): @ resets for every element/member tested,
			// so the instance cannot be shared across siblings.
			guarded := []ir.Instruction{
				ir.StartFilterExecution{FilterID: id},
				apply,
				ir.EndFiltersExecution{},
			}
			memberBody = append(memberBody, guarded...)
			elementBody = append(elementBody, guarded...)

		default:
			return nil, fmt.Errorf("%w: selector %T at segment %d", query.ErrNotSupported, sel, k)
		}
	}

	if seg.Deep {
		// A descendant segment's self-call carries no new refinement of
		// its own, but it must still thread every ancestor's inherited
		// condition through: Conditions needs one entry per segment (the
		// §3 invariant executeProcedureOnChild relies on), all nil, so the
		// renderer's "inherit segment_conditions[i] when Conditions[i] is
		// nil" branch fires for every index instead of the zero-length
		// slice silently dropping all of them.
		selfCall := ir.ExecuteProcedureOnChild{Name: procName(l.name, k), Conditions: make([]ir.SelectionCondition, len(l.segs))}
		memberBody = append(memberBody, selfCall)
		elementBody = append(elementBody, selfCall)
	}

	// Any procedure in a query that uses filters anywhere may be invoked
	// while an ancestor segment's filter instances are still live, so all
	// of them advance subquery cursors on every child visit, not just the
	// segment that declares the filter selector (spec.md §4.C.5).
	if l.anyFilters {
		memberBody = append([]ir.Instruction{ir.UpdateSubqueriesState{}}, memberBody...)
		elementBody = append([]ir.Instruction{ir.UpdateSubqueriesState{}}, elementBody...)
	}

	var body []ir.Instruction
	if len(memberBody) > 0 {
		body = append(body, ir.ForEachMember{Body: memberBody})
	}
	if len(elementBody) > 0 {
		body = append(body, ir.ForEachElement{Body: elementBody})
	}

	return &ir.Procedure{Name: procName(l.name, k), Body: body, FilterActive: l.anyFilters}, nil
}

// applyFragment builds step 3's apply_k: a leaf capture when k is the
// last segment, or a descent into the next segment's procedure
// otherwise, carrying cond as the new per-segment refinement (step 4).
func (l *lowerer) applyFragment(k int, last bool, cond ir.SelectionCondition) ir.Instruction {
	if last {
		return ir.SaveCurrentNodeDuringTraversal{Condition: cond, Body: []ir.Instruction{ir.TraverseCurrentNodeSubtree{}}}
	}

	conditions := make([]ir.SelectionCondition, len(l.segs))
	conditions[k+1] = cond
	return ir.ExecuteProcedureOnChild{Name: procName(l.name, k+1), Conditions: conditions}
}
