package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/jpc/internal/ir"
)

// renderer walks one query's procedure bodies, expanding each IR node
// into C++ text. Grounded on the original Rust compiler's
// templates/simdjson/ondemand/instruction.cpp (the Askama template this
// package's Go functions replace one-for-one, variant by variant) and
// macros.cpp (the selection-condition/filter-instance runtime
// machinery).
type renderer struct {
	queryName  string
	numSegs    int
	eager      bool
	anyFilters bool
}

func (r *renderer) instructions(instrs []ir.Instruction, indent int) string {
	var b strings.Builder
	for _, instr := range instrs {
		b.WriteString(r.instruction(instr, indent))
	}
	return b.String()
}

func pad(indent int) string { return strings.Repeat("    ", indent) }

func (r *renderer) instruction(instr ir.Instruction, indent int) string {
	p := pad(indent)
	switch v := instr.(type) {
	case ir.ForEachMember:
		var b strings.Builder
		fmt.Fprintf(&b, "%s{\n", p)
		fmt.Fprintf(&b, "%s    ondemand::value parent = value;\n", p)
		fmt.Fprintf(&b, "%s    for (auto field : parent.get_object()) {\n", p)
		fmt.Fprintf(&b, "%s        std::string_view key = field.unescaped_key().value();\n", p)
		fmt.Fprintf(&b, "%s        ondemand::value value = field.value();\n", p)
		if r.anyFilters {
			fmt.Fprintf(&b, "%s        current_node_data current_node{true, false, key, 0, 0};\n", p)
		}
		b.WriteString(r.instructions(v.Body, indent+2))
		fmt.Fprintf(&b, "%s    }\n", p)
		fmt.Fprintf(&b, "%s}\n", p)
		return b.String()

	case ir.ForEachElement:
		var b strings.Builder
		needsLen := r.anyFilters || needsArrayLength(v.Body)
		fmt.Fprintf(&b, "%s{\n", p)
		fmt.Fprintf(&b, "%s    ondemand::array parent = value.get_array();\n", p)
		if needsLen {
			fmt.Fprintf(&b, "%s    int64_t array_length = static_cast<int64_t>(parent.count_elements());\n", p)
		}
		fmt.Fprintf(&b, "%s    int64_t index = 0;\n", p)
		fmt.Fprintf(&b, "%s    for (auto element : parent) {\n", p)
		fmt.Fprintf(&b, "%s        ondemand::value value = element.value();\n", p)
		if r.anyFilters {
			lenExpr := "0"
			if needsLen {
				lenExpr = "array_length"
			}
			fmt.Fprintf(&b, "%s        current_node_data current_node{false, true, std::string_view(), index, %s};\n", p, lenExpr)
		}
		b.WriteString(r.instructions(v.Body, indent+2))
		fmt.Fprintf(&b, "%s        ++index;\n", p)
		fmt.Fprintf(&b, "%s    }\n", p)
		fmt.Fprintf(&b, "%s}\n", p)
		return b.String()

	case ir.IfCurrentIndexEquals:
		return r.guarded(fmt.Sprintf("index == %d", v.Index), v.Body, indent)

	case ir.IfCurrentIndexFromEndEquals:
		return r.guarded(fmt.Sprintf("array_length - index == %d", v.Index), v.Body, indent)

	case ir.IfCurrentMemberNameEquals:
		return r.guarded(fmt.Sprintf("key == %s", cppStringLiteral(v.Name)), v.Body, indent)

	case ir.IfIndexInSlice:
		return r.guarded(sliceCondition(v), v.Body, indent)

	case ir.IfActiveFilterInstance:
		if !r.anyFilters {
			return ""
		}
		return r.guarded("!filter_instances_ids.empty()", v.Body, indent)

	case ir.ExecuteProcedureOnChild:
		return r.executeProcedureOnChild(v, indent)

	case ir.SaveCurrentNodeDuringTraversal:
		return r.saveCurrentNode(v, indent)

	case ir.TraverseCurrentNodeSubtree:
		if !r.anyFilters {
			return fmt.Sprintf("%s%s_traverse_and_save_selected_nodes(value, result_buf, all_results);\n", p, r.queryName)
		}
		return fmt.Sprintf("%s%s_traverse_and_save_selected_nodes(value, result_buf, all_results, filter_instances_ids);\n", p, r.queryName)

	case ir.Continue:
		return fmt.Sprintf("%scontinue;\n", p)

	case ir.StartFilterExecution:
		return fmt.Sprintf("%sint %s = %s_start_filter_execution_%d_%d(value);\n%sfilter_instances_ids.push_back(%s);\n",
			p, filterInstanceVar(v.FilterID), r.queryName, v.FilterID.SegmentIndex, v.FilterID.SelectorIndex,
			p, filterInstanceVar(v.FilterID))

	case ir.EndFiltersExecution:
		return fmt.Sprintf("%s%s_end_filters_execution(filter_instances_ids);\n", p, r.queryName)

	case ir.UpdateSubqueriesState:
		return fmt.Sprintf("%s%s_update_subqueries_state(filter_instances_ids, current_node, value);\n", p, r.queryName)

	default:
		return fmt.Sprintf("%s/* unrecognized instruction %T */\n", p, instr)
	}
}

func (r *renderer) guarded(cond string, body []ir.Instruction, indent int) string {
	p := pad(indent)
	var b strings.Builder
	fmt.Fprintf(&b, "%sif (%s) {\n", p, cond)
	b.WriteString(r.instructions(body, indent+1))
	fmt.Fprintf(&b, "%s}\n", p)
	return b.String()
}

func (r *renderer) executeProcedureOnChild(v ir.ExecuteProcedureOnChild, indent int) string {
	p := pad(indent)
	var b strings.Builder
	if !r.anyFilters {
		fmt.Fprintf(&b, "%s%s(value, result_buf, all_results);\n", p, v.Name)
		return b.String()
	}

	fmt.Fprintf(&b, "%sselection_condition* new_segment_conditions[%s_SEGMENT_COUNT] = {};\n", p, r.queryName)
	for i, cond := range v.Conditions {
		if cond == nil {
			fmt.Fprintf(&b, "%sif (segment_conditions[%d] != nullptr) new_segment_conditions[%d] = segment_conditions[%d];\n", p, i, i, i)
			continue
		}
		fmt.Fprintf(&b, "%snew_segment_conditions[%d] = %s;\n", p, i, r.selectionCondition(cond))
		fmt.Fprintf(&b, "%sif (segment_conditions[%d] != nullptr) new_segment_conditions[%d] = selection_condition::new_and(segment_conditions[%d], new_segment_conditions[%d]);\n",
			p, i, i, i, i)
	}
	fmt.Fprintf(&b, "%s%s(value, result_buf, all_results, new_segment_conditions, filter_instances_ids);\n", p, v.Name)
	return b.String()
}

func (r *renderer) saveCurrentNode(v ir.SaveCurrentNodeDuringTraversal, indent int) string {
	p := pad(indent)
	var b strings.Builder
	fmt.Fprintf(&b, "%sif (result_buf == nullptr) result_buf = new std::string();\n", p)
	fmt.Fprintf(&b, "%ssize_t result_i = all_results.size();\n", p)

	switch {
	case v.Condition == nil:
		fmt.Fprintf(&b, "%sall_results.emplace_back(result_buf, result_buf->size(), 0, nullptr);\n", p)
	case r.eager:
		fmt.Fprintf(&b, "%sauto* node_condition = %s;\n", p, r.selectionCondition(v.Condition))
		fmt.Fprintf(&b, "%sbool condition_value;\n", p)
		fmt.Fprintf(&b, "%sif (%s_try_evaluate_selection_condition(node_condition, condition_value)) {\n", p, r.queryName)
		fmt.Fprintf(&b, "%s    if (condition_value) all_results.emplace_back(result_buf, result_buf->size(), 0, nullptr);\n", p)
		fmt.Fprintf(&b, "%s} else {\n", p)
		fmt.Fprintf(&b, "%s    all_results.emplace_back(result_buf, result_buf->size(), 0, node_condition);\n", p)
		fmt.Fprintf(&b, "%s}\n", p)
	default:
		fmt.Fprintf(&b, "%sall_results.emplace_back(result_buf, result_buf->size(), 0, %s);\n", p, r.selectionCondition(v.Condition))
	}

	b.WriteString(r.instructions(v.Body, indent))
	fmt.Fprintf(&b, "%sif (result_i < all_results.size()) std::get<2>(all_results[result_i]) = result_buf->size();\n", p)
	return b.String()
}

func (r *renderer) selectionCondition(c ir.SelectionCondition) string {
	switch v := c.(type) {
	case nil:
		return "nullptr"
	case ir.CondAlwaysTrue:
		return "&always_true_condition"
	case ir.CondAlwaysFalse:
		return "&always_false_condition"
	case ir.CondFilter:
		return fmt.Sprintf("selection_condition::new_filter(%s)", filterInstanceVar(v.FilterID))
	case ir.CondAnd:
		return fmt.Sprintf("selection_condition::new_and(%s, %s)", r.selectionCondition(v.L), r.selectionCondition(v.R))
	case ir.CondOr:
		return fmt.Sprintf("selection_condition::new_or(%s, %s)", r.selectionCondition(v.L), r.selectionCondition(v.R))
	default:
		return "nullptr"
	}
}

func filterOrdinal(id ir.FilterID) int {
	return id.SegmentIndex*1000 + id.SelectorIndex
}

// filterInstanceVar names the local variable StartFilterExecution binds
// the freshly created filter instance's id to, within the same
// procedure body a matching SaveCurrentNodeDuringTraversal{Condition:
// CondFilter{...}} references it from.
func filterInstanceVar(id ir.FilterID) string {
	return fmt.Sprintf("filter_id_%d_%d", id.SegmentIndex, id.SelectorIndex)
}

func sliceCondition(s ir.IfIndexInSlice) string {
	step := 1
	if s.Step != nil {
		step = *s.Step
	}

	var parts []string
	if s.Start != nil {
		parts = append(parts, fmt.Sprintf("index >= %s", resolvedBound(*s.Start)))
	}
	if s.End != nil {
		if step >= 0 {
			parts = append(parts, fmt.Sprintf("index < %s", resolvedBound(*s.End)))
		} else {
			parts = append(parts, fmt.Sprintf("index > %s", resolvedBound(*s.End)))
		}
	}
	if step != 1 {
		parts = append(parts, fmt.Sprintf("((index - (%s)) %% %d) == 0", startOrZero(s.Start), step))
	}
	if len(parts) == 0 {
		return "true"
	}
	return strings.Join(parts, " && ")
}

// needsArrayLength reports whether any selector in body resolves a
// negative index or slice bound, which the emitted condition expands to
// "array_length - N" (spec.md §4.C.1's lazy array_length computation).
func needsArrayLength(body []ir.Instruction) bool {
	for _, instr := range body {
		switch v := instr.(type) {
		case ir.IfCurrentIndexFromEndEquals:
			return true
		case ir.IfIndexInSlice:
			if (v.Start != nil && *v.Start < 0) || (v.End != nil && *v.End < 0) {
				return true
			}
		}
	}
	return false
}

func resolvedBound(v int) string {
	if v < 0 {
		return fmt.Sprintf("array_length - %d", -v)
	}
	return strconv.Itoa(v)
}

func startOrZero(start *int) string {
	if start == nil {
		return "0"
	}
	return resolvedBound(*start)
}

// cppStringLiteral renders a Go string as a double-quoted C++ string
// literal, escaping backslashes, quotes and control characters.
func cppStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
