package emit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jacoelho/jpc/internal/ir"
)

// domRenderer expands one filter-free query's procedures against
// simdjson's materialized dom::element API (spec.md §6.1's "--mode=dom"),
// the same instruction set render.go expands against ondemand::value but
// without any of the filter/subquery machinery: SPEC_FULL.md's Open
// Questions resolution rejects filters under --mode=dom before a query
// ever reaches this renderer (see lower.RejectFiltersUnderDOM), so every
// variant this type does not recognize below is provably unreachable,
// not silently dropped.
type domRenderer struct {
	queryName string
}

// HasFilters reports whether q uses any filter selector, the one
// condition --mode=dom cannot support (spec.md §9).
func HasFilters(q *ir.QueryIR) bool {
	return len(q.Filters) > 0
}

func (r *domRenderer) instructions(instrs []ir.Instruction, indent int) string {
	var b strings.Builder
	for _, instr := range instrs {
		b.WriteString(r.instruction(instr, indent))
	}
	return b.String()
}

func (r *domRenderer) instruction(instr ir.Instruction, indent int) string {
	p := pad(indent)
	switch v := instr.(type) {
	case ir.ForEachMember:
		var b strings.Builder
		fmt.Fprintf(&b, "%sfor (dom::key_value_pair field : value.get_object()) {\n", p)
		fmt.Fprintf(&b, "%s    std::string_view key = field.key;\n", p)
		fmt.Fprintf(&b, "%s    dom::element value = field.value;\n", p)
		b.WriteString(r.instructions(v.Body, indent+1))
		fmt.Fprintf(&b, "%s}\n", p)
		return b.String()

	case ir.ForEachElement:
		var b strings.Builder
		needsLen := needsArrayLength(v.Body)
		fmt.Fprintf(&b, "%s{\n", p)
		fmt.Fprintf(&b, "%s    dom::array parent = value.get_array();\n", p)
		if needsLen {
			fmt.Fprintf(&b, "%s    int64_t array_length = static_cast<int64_t>(parent.size());\n", p)
		}
		fmt.Fprintf(&b, "%s    int64_t index = 0;\n", p)
		fmt.Fprintf(&b, "%s    for (dom::element value : parent) {\n", p)
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

	case ir.ExecuteProcedureOnChild:
		return fmt.Sprintf("%s%s(value, result_buf, all_results);\n", p, v.Name)

	case ir.SaveCurrentNodeDuringTraversal:
		var b strings.Builder
		fmt.Fprintf(&b, "%sif (result_buf == nullptr) result_buf = new std::string();\n", p)
		fmt.Fprintf(&b, "%ssize_t result_i = all_results.size();\n", p)
		fmt.Fprintf(&b, "%sall_results.emplace_back(result_buf, result_buf->size(), 0, nullptr);\n", p)
		b.WriteString(r.instructions(v.Body, indent))
		fmt.Fprintf(&b, "%sif (result_i < all_results.size()) std::get<2>(all_results[result_i]) = result_buf->size();\n", p)
		return b.String()

	case ir.TraverseCurrentNodeSubtree:
		return fmt.Sprintf("%s%s_traverse_and_save_selected_nodes(value, result_buf, all_results);\n", p, r.queryName)

	case ir.Continue:
		return fmt.Sprintf("%scontinue;\n", p)

	default:
		return fmt.Sprintf("%s/* unrecognized dom instruction %T */\n", p, instr)
	}
}

func (r *domRenderer) guarded(cond string, body []ir.Instruction, indent int) string {
	p := pad(indent)
	var b strings.Builder
	fmt.Fprintf(&b, "%sif (%s) {\n", p, cond)
	b.WriteString(r.instructions(body, indent+1))
	fmt.Fprintf(&b, "%s}\n", p)
	return b.String()
}

// emitDOMQuery renders one query's procedures against the dom::element
// backend (spec.md §6.1, "--mode=dom"). Callers must have already
// rejected filtered queries (see Options.DOM's doc comment); this
// function has no filter/subquery parameters to thread because of it.
func (e *Emitter) emitDOMQuery(out *bytes.Buffer, q *ir.QueryIR) error {
	out.WriteString(domTraverseAndSaveSelectedNodes(q))

	r := &domRenderer{queryName: q.Name}

	for _, proc := range q.Procedures {
		fmt.Fprintf(out, "static void %s(dom::element, std::string*, std::vector<result_record>&);\n", proc.Name)
	}
	out.WriteString("\n")

	for _, proc := range q.Procedures {
		body := r.instructions(proc.Body, 1)
		if err := e.tmpl.ExecuteTemplate(out, "dom_procedure.tmpl", struct {
			Name string
			Body string
		}{Name: proc.Name, Body: body}); err != nil {
			return fmt.Errorf("rendering dom procedure %q: %w", proc.Name, err)
		}
		out.WriteString("\n")
	}

	if err := e.tmpl.ExecuteTemplate(out, "dom_entry.tmpl", struct{ Name string }{Name: q.Name}); err != nil {
		return fmt.Errorf("rendering dom entry point: %w", err)
	}
	out.WriteString("\n")

	return nil
}

// domTraverseAndSaveSelectedNodes is the dom::element counterpart of
// perquery.go's traverseAndSaveSelectedNodesNoFilters: a materialized
// element has no raw_json_token, so the subtree is reserialized through
// simdjson's stream operator instead of copied verbatim.
func domTraverseAndSaveSelectedNodes(q *ir.QueryIR) string {
	return fmt.Sprintf(`static void %s_traverse_and_save_selected_nodes(dom::element value, std::string* result_buf, std::vector<result_record>& all_results) {
	std::ostringstream raw;
	raw << value;
	result_buf->append(raw.str());
	switch (value.type()) {
	case dom::element_type::OBJECT:
		for (dom::key_value_pair field : value.get_object()) {
			%s_traverse_and_save_selected_nodes(field.value, result_buf, all_results);
		}
		break;
	case dom::element_type::ARRAY:
		for (dom::element child : value.get_array()) {
			%s_traverse_and_save_selected_nodes(child, result_buf, all_results);
		}
		break;
	default:
		break;
	}
}

`, q.Name, q.Name, q.Name)
}
