// Package simulate is a Go-native reference implementation of RFC 9535
// query evaluation over already-decoded JSON (map[string]any/[]any/
// scalars), evaluating the parsed query AST directly (it does not
// execute lowered IR), used by the CLI's debug "run" subcommand and
// checked by its own tests. It never runs in the code this compiler emits: the
// emitted program performs an equivalent evaluation itself, streaming,
// in the target language (spec.md §4.C).
//
// The descendant-segment walk here is grounded on the teacher's own
// decoded-tree segment matcher (internal/jsonpath/jsonpath.go's
// processDeepSegment/processChildSegment family), adapted from
// "resume a streaming match mid-document" to "evaluate a full query
// against an in-memory tree", and reuses the teacher's generic Stack
// for the explicit-stack descendant walk.
package simulate

import (
	"fmt"

	"github.com/jacoelho/jpc/internal/pointer"
	"github.com/jacoelho/jpc/internal/query"
	"github.com/jacoelho/jpc/internal/stack"
)

// Match pairs a matched node with the RFC 6901 JSON Pointer segments
// addressing it within the document. jpc run's debug subcommand
// (SPEC_FULL.md's "Supplemented: reference simulator" section) reports
// this path alongside each value so a query can be tried out before
// compiling it.
type Match struct {
	Value any
	Path  []pointer.Segment
}

// Pointer renders m's Path as an RFC 6901 JSON Pointer string.
func (m Match) Pointer() string {
	return pointer.Encode(m.Path)
}

// Run evaluates q against root and returns the matched nodes,
// duplicates included (RFC 9535 does not deduplicate). Array elements
// come out in document order; object members come out in Go's map
// iteration order, since a decoded map[string]any keeps no member order.
func Run(q *query.Query, root any) ([]any, error) {
	matches, err := RunWithPaths(q, root)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(matches))
	for i, m := range matches {
		out[i] = m.Value
	}
	return out, nil
}

// RunWithPaths evaluates q against root like Run, but also reports each
// match's RFC 6901 JSON Pointer path into the document.
func RunWithPaths(q *query.Query, root any) ([]Match, error) {
	current := []Match{{Value: root}}
	for _, seg := range q.Segments {
		next, err := applySegment(seg, current, root)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func applySegment(seg query.Segment, nodes []Match, root any) ([]Match, error) {
	var out []Match
	for _, node := range nodes {
		candidates := []Match{node}
		if seg.Deep {
			candidates = descendants(node)
		}
		for _, c := range candidates {
			matched, err := applyChildSelectors(seg, c, root)
			if err != nil {
				return nil, err
			}
			out = append(out, matched...)
		}
	}
	return out, nil
}

// descendants returns node and every node reachable from it, in
// pre-order (array elements in document order, object members in the
// order childrenWithPaths yields them), using an explicit stack so
// deeply nested documents don't blow the Go call stack.
func descendants(node Match) []Match {
	var out []Match
	st := stack.New[Match]()
	st.Push(node)
	for {
		f, ok := st.Pop()
		if !ok {
			break
		}
		out = append(out, f)
		children := childrenWithPaths(f)
		for i := len(children) - 1; i >= 0; i-- {
			st.Push(children[i])
		}
	}
	return out
}

// childrenWithPaths returns node's immediate object members or array
// elements, each carrying the RFC 6901 path segment that addresses it
// relative to node.
func childrenWithPaths(node Match) []Match {
	switch v := node.Value.(type) {
	case map[string]any:
		out := make([]Match, 0, len(v))
		for k, val := range v {
			out = append(out, Match{Value: val, Path: appendSegment(node.Path, pointer.Segment{IsName: true, Name: k})})
		}
		return out
	case []any:
		out := make([]Match, 0, len(v))
		for i, val := range v {
			out = append(out, Match{Value: val, Path: appendSegment(node.Path, pointer.Segment{Index: i})})
		}
		return out
	default:
		return nil
	}
}

// appendSegment returns a new path with seg appended, never aliasing
// parent's backing array (parent is shared across siblings).
func appendSegment(parent []pointer.Segment, seg pointer.Segment) []pointer.Segment {
	out := make([]pointer.Segment, len(parent)+1)
	copy(out, parent)
	out[len(parent)] = seg
	return out
}

func applyChildSelectors(seg query.Segment, node Match, root any) ([]Match, error) {
	var out []Match
	for _, sel := range seg.Selectors {
		matched, err := applySelector(sel, node, root)
		if err != nil {
			return nil, err
		}
		out = append(out, matched...)
	}
	return out, nil
}

func applySelector(sel query.Selector, node Match, root any) ([]Match, error) {
	switch s := sel.(type) {
	case query.NameSelector:
		obj, ok := node.Value.(map[string]any)
		if !ok {
			return nil, nil
		}
		v, ok := obj[s.Name]
		if !ok {
			return nil, nil
		}
		return []Match{{Value: v, Path: appendSegment(node.Path, pointer.Segment{IsName: true, Name: s.Name})}}, nil

	case query.WildcardSelector:
		return childrenWithPaths(node), nil

	case query.IndexSelector:
		arr, ok := node.Value.([]any)
		if !ok {
			return nil, nil
		}
		idx := s.Index
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return nil, nil
		}
		return []Match{{Value: arr[idx], Path: appendSegment(node.Path, pointer.Segment{Index: idx})}}, nil

	case query.SliceSelector:
		arr, ok := node.Value.([]any)
		if !ok {
			return nil, nil
		}
		return sliceSelect(node, arr, s), nil

	case query.FilterSelector:
		children := childrenWithPaths(node)
		var matched []Match
		for _, c := range children {
			ok, err := evalFilter(s.Expr, c.Value, root)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, c)
			}
		}
		return matched, nil

	default:
		return nil, fmt.Errorf("%w: selector %T", query.ErrNotSupported, sel)
	}
}

func sliceSelect(node Match, arr []any, s query.SliceSelector) []Match {
	n := len(arr)
	step := 1
	if s.Step != nil {
		step = *s.Step
	}
	if step == 0 {
		return nil
	}

	var start, end int
	if step > 0 {
		start, end = 0, n
		if s.Start != nil {
			start = normalizeIndex(*s.Start, n)
		}
		if s.End != nil {
			end = normalizeIndex(*s.End, n)
		}
	} else {
		start, end = n-1, -1
		if s.Start != nil {
			start = normalizeIndex(*s.Start, n)
		}
		if s.End != nil {
			end = normalizeIndex(*s.End, n)
		}
	}

	var out []Match
	if step > 0 {
		for i := start; i < end; i += step {
			if i >= 0 && i < n {
				out = append(out, Match{Value: arr[i], Path: appendSegment(node.Path, pointer.Segment{Index: i})})
			}
		}
	} else {
		for i := start; i > end; i += step {
			if i >= 0 && i < n {
				out = append(out, Match{Value: arr[i], Path: appendSegment(node.Path, pointer.Segment{Index: i})})
			}
		}
	}
	return out
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	return i
}
