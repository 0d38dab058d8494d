package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jacoelho/jpc/internal/ir"
)

// queryScaffold renders the per-query runtime state that every
// procedure in the query's Procedures refers to by name: the filter
// instance table, StartFilterExecution/EndFiltersExecution, the
// subquery cursor advancement function (spec §4.C.5), and the tri-valued
// condition resolver (spec §4.C.6). One copy of this scaffolding is
// emitted per query so multiple queries can share a translation unit
// without colliding on filter ids (spec.md §4.D, "deterministic naming
// convention").
func queryScaffold(q *ir.QueryIR) string {
	var b strings.Builder

	if len(q.Subqueries) > 0 {
		fmt.Fprintf(&b, "static std::vector<filter_instance> %s_filter_instances;\n\n", q.Name)
	}

	for _, ids := range sortedFilterIDs(q) {
		subs := q.Subqueries[ids]
		fmt.Fprintf(&b, "static const subquery_path_segment* %s_filter_%d_%d_cursor_heads[%d] = {\n",
			q.Name, ids.SegmentIndex, ids.SelectorIndex, max(1, len(subs)))
		for i, sq := range subs {
			if len(sq.Segments) == 0 {
				fmt.Fprintf(&b, "\tnullptr, // subquery %d is empty: refers to the candidate node itself\n", i)
				continue
			}
			fmt.Fprintf(&b, "\t&%s_filter_%d_%d_subquery_%d_seg_0,\n", q.Name, ids.SegmentIndex, ids.SelectorIndex, i)
		}
		b.WriteString("};\n\n")

		for i, sq := range subs {
			emitSubquerySegments(&b, q.Name, ids, i, sq)
		}

		fmt.Fprintf(&b, "// candidate is the node this filter's @ refers to: a degenerate\n")
		fmt.Fprintf(&b, "// subquery (no path segments beyond @ itself) resolves against it\n")
		fmt.Fprintf(&b, "// immediately, since there is no deeper cursor to advance.\n")
		fmt.Fprintf(&b, "static int %s_start_filter_execution_%d_%d(ondemand::value candidate) {\n", q.Name, ids.SegmentIndex, ids.SelectorIndex)
		fmt.Fprintf(&b, "\tint id = static_cast<int>(%s_filter_instances.size());\n", q.Name)
		fmt.Fprintf(&b, "\tfilter_instance inst;\n")
		fmt.Fprintf(&b, "\tinst.id = id;\n")
		fmt.Fprintf(&b, "\tinst.filter_ordinal = %d;\n", filterOrdinal(ids))
		for i, sq := range subs {
			fmt.Fprintf(&b, "\tinst.cursors[%d] = %s_filter_%d_%d_cursor_heads[%d];\n", i, q.Name, ids.SegmentIndex, ids.SelectorIndex, i)
			fmt.Fprintf(&b, "\tinst.from_root[%d] = %t;\n", i, sq.FromRoot)
			if len(sq.Segments) == 0 {
				fmt.Fprintf(&b, "\tinst.reached[%d] = true;\n", i)
				fmt.Fprintf(&b, "\tinst.results[%d] = subquery_result::from_node(candidate);\n", i)
			}
		}
		fmt.Fprintf(&b, "\t%s_filter_instances.push_back(inst);\n", q.Name)
		fmt.Fprintf(&b, "\treturn id;\n}\n\n")
	}

	anyFilters := len(q.Subqueries) > 0
	if anyFilters {
		b.WriteString(endFiltersExecution(q))
		b.WriteString(updateSubqueriesState(q))
		b.WriteString(evaluateFilterDispatcher(q))
		b.WriteString(tryEvaluateSelectionCondition(q))
		b.WriteString(traverseAndSaveSelectedNodes(q))
	} else {
		b.WriteString(traverseAndSaveSelectedNodesNoFilters(q))
	}

	return b.String()
}

// evaluateFilterDispatcher routes a filter ordinal (the value
// start_filter_execution stores in filter_instance::filter_ordinal, see
// filterOrdinal) to the one filter function it was started from.
func evaluateFilterDispatcher(q *ir.QueryIR) string {
	var b strings.Builder
	fmt.Fprintf(&b, "static bool %s_evaluate_filter(int ordinal, const subquery_result subquery_results[MAX_SUBQUERIES_IN_FILTER]) {\n", q.Name)
	fmt.Fprintf(&b, "\tswitch (ordinal) {\n")
	for _, fp := range q.Filters {
		fmt.Fprintf(&b, "\tcase %d: return %s(subquery_results);\n", filterOrdinal(fp.FilterID), fp.Name)
	}
	fmt.Fprintf(&b, "\tdefault: return false;\n\t}\n}\n\n")
	return b.String()
}

func emitSubquerySegments(b *strings.Builder, queryName string, id ir.FilterID, subIdx int, sq ir.Subquery) {
	for i := len(sq.Segments) - 1; i >= 0; i-- {
		seg := sq.Segments[i]
		next := "nullptr"
		if i+1 < len(sq.Segments) {
			next = fmt.Sprintf("&%s_filter_%d_%d_subquery_%d_seg_%d", queryName, id.SegmentIndex, id.SelectorIndex, subIdx, i+1)
		}
		fmt.Fprintf(b, "static subquery_path_segment %s_filter_%d_%d_subquery_%d_seg_%d = {%t, %s, %d, %s};\n",
			queryName, id.SegmentIndex, id.SelectorIndex, subIdx, i,
			seg.IsName, cppStringLiteral(seg.Name), seg.Index, next)
	}
	if len(sq.Segments) == 0 {
		return
	}
	b.WriteString("\n")
}

// endFiltersExecution pops exactly the one instance the matching
// StartFilterExecution pushed (spec.md §4.C.5): instances started by an
// ancestor segment's still-live candidate stay on filter_instances_ids,
// since Start/End pairs nest in strict LIFO order by construction.
func endFiltersExecution(q *ir.QueryIR) string {
	return fmt.Sprintf(`static void %s_end_filters_execution(std::vector<int>& filter_instances_ids) {
	filter_instances_ids.pop_back();
}

`, q.Name)
}

func updateSubqueriesState(q *ir.QueryIR) string {
	return fmt.Sprintf(`// Advances every live filter instance's subquery cursors by one step
// against current_node / node (spec.md §4.C.5).
static void %s_update_subqueries_state(std::vector<int>& filter_instances_ids, const current_node_data& current_node, ondemand::value node) {
	for (int id : filter_instances_ids) {
		filter_instance& inst = %s_filter_instances[id];
		if (!inst.active) {
			inst.active = true;
			continue;
		}
		for (int i = 0; i < MAX_SUBQUERIES_IN_FILTER; ++i) {
			const subquery_path_segment* seg = inst.cursors[i];
			if (seg == nullptr) continue;
			bool matched;
			if (seg->is_name) {
				matched = current_node.is_member && seg->name == current_node.key;
			} else {
				matched = current_node.is_element &&
					(seg->index == current_node.index ||
					 (seg->index < 0 && seg->index + current_node.array_length == current_node.index));
			}
			if (!matched) {
				inst.cursors[i] = nullptr;
				continue;
			}
			inst.cursors[i] = seg->next;
			if (seg->next == nullptr && !inst.reached[i]) {
				inst.reached[i] = true;
				inst.results[i] = subquery_result::from_node(node);
			}
		}
	}
}

`, q.Name, q.Name)
}

func tryEvaluateSelectionCondition(q *ir.QueryIR) string {
	return fmt.Sprintf(`// Tri-valued resolution of a selection condition tree (spec.md §4.C.6).
static bool %s_try_evaluate_selection_condition(selection_condition* cond, bool& value) {
	if (cond == nullptr) { value = true; return true; }
	switch (cond->kind) {
	case selection_condition_kind::always_true: value = true; return true;
	case selection_condition_kind::always_false: value = false; return true;
	case selection_condition_kind::filter_ref: {
		if (cond->filter_id < 0 || cond->filter_id >= static_cast<int>(%s_filter_instances.size())) return false;
		filter_instance& inst = %s_filter_instances[cond->filter_id];
		for (int i = 0; i < MAX_SUBQUERIES_IN_FILTER; ++i) {
			if (inst.cursors[i] != nullptr && !inst.reached[i]) return false;
		}
		value = %s_evaluate_filter(inst.filter_ordinal, inst.results);
		return true;
	}
	case selection_condition_kind::and_node: {
		bool lv, rv;
		bool lk = %s_try_evaluate_selection_condition(cond->left, lv);
		if (lk && !lv) { value = false; return true; }
		bool rk = %s_try_evaluate_selection_condition(cond->right, rv);
		if (rk && !rv) { value = false; return true; }
		if (lk && rk) { value = true; return true; }
		return false;
	}
	case selection_condition_kind::or_node: {
		bool lv, rv;
		bool lk = %s_try_evaluate_selection_condition(cond->left, lv);
		if (lk && lv) { value = true; return true; }
		bool rk = %s_try_evaluate_selection_condition(cond->right, rv);
		if (rk && rv) { value = true; return true; }
		if (lk && rk) { value = false; return true; }
		return false;
	}
	}
	return false;
}

`, q.Name, q.Name, q.Name, q.Name, q.Name, q.Name, q.Name, q.Name)
}

func traverseAndSaveSelectedNodes(q *ir.QueryIR) string {
	return fmt.Sprintf(`// Copies the current node's raw JSON into the active result buffer and
// recurses, feeding subquery cursor advancement along the way
// (spec.md §4.C.2's TraverseCurrentNodeSubtree semantics).
static void %s_traverse_and_save_selected_nodes(ondemand::value value, std::string* result_buf, std::vector<result_record>& all_results, std::vector<int>& filter_instances_ids) {
	std::string_view raw = value.raw_json_token();
	result_buf->append(raw);
	switch (value.type()) {
	case ondemand::json_type::object:
		for (auto field : value.get_object()) {
			ondemand::value child = field.value();
			current_node_data current_node{true, false, std::string_view(field.unescaped_key().value()), 0, 0};
			%s_update_subqueries_state(filter_instances_ids, current_node, child);
			%s_traverse_and_save_selected_nodes(child, result_buf, all_results, filter_instances_ids);
		}
		break;
	case ondemand::json_type::array: {
		ondemand::array arr = value.get_array();
		int64_t array_length = static_cast<int64_t>(arr.count_elements());
		int64_t index = 0;
		for (auto element : arr) {
			ondemand::value child = element.value();
			current_node_data current_node{false, true, std::string_view(), index, array_length};
			%s_update_subqueries_state(filter_instances_ids, current_node, child);
			%s_traverse_and_save_selected_nodes(child, result_buf, all_results, filter_instances_ids);
			++index;
		}
		break;
	}
	default:
		break;
	}
}

`, q.Name, q.Name, q.Name, q.Name, q.Name)
}

// traverseAndSaveSelectedNodesNoFilters is the filter-free counterpart
// of traverseAndSaveSelectedNodes, emitted instead of it when the query
// has no filter selectors: there are no subquery cursors to advance, so
// the recursion skips current_node_data construction and
// update_subqueries_state entirely.
func traverseAndSaveSelectedNodesNoFilters(q *ir.QueryIR) string {
	return fmt.Sprintf(`// Copies the current node's raw JSON into the active result buffer and
// recurses (spec.md §4.C.2's TraverseCurrentNodeSubtree semantics; this
// query has no filters, so no subquery cursor advancement is needed).
static void %s_traverse_and_save_selected_nodes(ondemand::value value, std::string* result_buf, std::vector<result_record>& all_results) {
	std::string_view raw = value.raw_json_token();
	result_buf->append(raw);
	switch (value.type()) {
	case ondemand::json_type::object:
		for (auto field : value.get_object()) {
			%s_traverse_and_save_selected_nodes(field.value(), result_buf, all_results);
		}
		break;
	case ondemand::json_type::array:
		for (auto element : value.get_array()) {
			%s_traverse_and_save_selected_nodes(element.value(), result_buf, all_results);
		}
		break;
	default:
		break;
	}
}

`, q.Name, q.Name, q.Name)
}

func sortedFilterIDs(q *ir.QueryIR) []ir.FilterID {
	ids := make([]ir.FilterID, 0, len(q.Subqueries))
	for id := range q.Subqueries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].SegmentIndex != ids[j].SegmentIndex {
			return ids[i].SegmentIndex < ids[j].SegmentIndex
		}
		return ids[i].SelectorIndex < ids[j].SelectorIndex
	})
	return ids
}
