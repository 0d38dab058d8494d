package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a JSONPath expression into a Query AST. expr must start
// with '$'. Validate (validate.go) should be called first in
// production code paths so that RFC 9535 syntax errors are reported by
// the external theory/jsonpath library before this compiler's own,
// narrower grammar rejects a construct it simply doesn't lower.
func Parse(expr string) (*Query, error) {
	if err := validateStart(expr); err != nil {
		return nil, err
	}

	if expr == "$" {
		return &Query{}, nil
	}

	i := 1
	var segs []Segment
	for i < len(expr) {
		seg, next, err := parseSegment(expr, i)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		i = next
	}

	return &Query{Segments: segs}, nil
}

func validateStart(expr string) error {
	if expr == "" {
		return fmt.Errorf("%w: expression cannot be empty", ErrSyntax)
	}
	if expr[0] != '$' || (len(expr) > 1 && expr[1] != '.' && expr[1] != '[') {
		return fmt.Errorf("%w: expression must start with '$', '$.', or '$['", ErrSyntax)
	}
	return nil
}

func parseSegment(expr string, i int) (Segment, int, error) {
	if i >= len(expr) {
		return Segment{}, i, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	switch expr[i] {
	case '.':
		return parseDotSegment(expr, i)
	case '[':
		return parseBracketSegment(expr, i)
	default:
		return Segment{}, i, fmt.Errorf("%w: unexpected token %q at position %d, expected '.' or '['", ErrSyntax, expr[i], i)
	}
}

func parseDotSegment(expr string, i int) (Segment, int, error) {
	seg := Segment{}

	if i+1 < len(expr) && expr[i+1] == '.' {
		seg.Deep = true
		i += 2
	} else {
		i++
	}

	if i >= len(expr) {
		return Segment{}, i, fmt.Errorf("%w: path segment cannot end with '.' or '..'", ErrSyntax)
	}

	if expr[i] == '*' {
		seg.Selectors = append(seg.Selectors, WildcardSelector{})
		return seg, i + 1, nil
	}

	if expr[i] == '[' {
		// '..[' is a descendant segment whose bracket content follows
		// immediately, e.g. "$..[0]".
		bracketSeg, next, err := parseBracketSegment(expr, i)
		if err != nil {
			return Segment{}, i, err
		}
		bracketSeg.Deep = seg.Deep
		return bracketSeg, next, nil
	}

	name, next, err := parseName(expr, i)
	if err != nil {
		return Segment{}, i, err
	}
	seg.Selectors = append(seg.Selectors, NameSelector{Name: name})
	return seg, next, nil
}

func parseName(expr string, i int) (string, int, error) {
	start := i
	for i < len(expr) && idRune(expr[i]) {
		i++
	}
	if start == i {
		return "", i, fmt.Errorf("%w: name selector cannot be empty after '.'", ErrSyntax)
	}
	return expr[start:i], i, nil
}

func idRune(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == '-'
}

func parseBracketSegment(expr string, i int) (Segment, int, error) {
	i++ // consume '['
	if i >= len(expr) {
		return Segment{}, i, fmt.Errorf("%w: unterminated bracket selector, missing ']'", ErrSyntax)
	}

	if i+1 < len(expr) && expr[i] == '?' {
		return parseFilterSegment(expr, i)
	}

	return parseUnionSegment(expr, i)
}

func parseFilterSegment(expr string, i int) (Segment, int, error) {
	end := findMatchingBracket(expr, i-1)
	if end == -1 {
		return Segment{}, i, fmt.Errorf("%w: unterminated filter selector, missing ']' for '[?...'", ErrSyntax)
	}

	inside := expr[i+1 : end] // drop leading '?'
	inside = strings.TrimSpace(inside)
	if strings.HasPrefix(inside, "(") && strings.HasSuffix(inside, ")") {
		// optional RFC 9535 parenthesized form "[?(<expr>)]"
		inner := strings.TrimSpace(inside[1 : len(inside)-1])
		if balanced(inner) {
			inside = inner
		}
	}

	fexpr, err := parseFilterExpr(inside)
	if err != nil {
		return Segment{}, end + 1, fmt.Errorf("parsing filter body %q: %w", inside, err)
	}

	return Segment{Selectors: []Selector{FilterSelector{Expr: fexpr}}}, end + 1, nil
}

// balanced reports whether s's parentheses are individually balanced,
// used to decide whether stripping one layer of "(...)" around a filter
// body is just removing the optional outer grouping rather than half of
// an expression like "(a) && (b)".
func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func parseUnionSegment(expr string, i int) (Segment, int, error) {
	start := i
	end := strings.IndexByte(expr[i:], ']')
	if end == -1 {
		return Segment{}, i, fmt.Errorf("%w: unterminated bracket selector, missing ']'", ErrSyntax)
	}
	content := expr[start : start+end]
	next := start + end + 1

	if strings.TrimSpace(content) == "" {
		return Segment{}, next, fmt.Errorf("%w: empty bracket selector '[]'", ErrSyntax)
	}

	seg := Segment{}
	for _, part := range splitTopLevel(content, ',') {
		sel, err := parseUnionPart(part)
		if err != nil {
			return Segment{}, next, err
		}
		seg.Selectors = append(seg.Selectors, sel)
	}
	return seg, next, nil
}

func parseUnionPart(part string) (Selector, error) {
	p := strings.TrimSpace(part)
	if p == "" {
		return nil, fmt.Errorf("%w: empty part in union selector", ErrSyntax)
	}
	if p == "*" {
		return WildcardSelector{}, nil
	}
	if isQuotedName(p) {
		return NameSelector{Name: unquoteName(p)}, nil
	}
	if strings.Contains(p, ":") {
		return parseSlice(p)
	}
	if idx, err := strconv.Atoi(p); err == nil {
		return IndexSelector{Index: idx}, nil
	}
	return nil, fmt.Errorf("%w: invalid content %q in bracket selector", ErrSyntax, p)
}

func isQuotedName(s string) bool {
	return (len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'') ||
		(len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"')
}

func unquoteName(s string) string {
	return s[1 : len(s)-1]
}

func parseSlice(p string) (Selector, error) {
	bounds := strings.Split(p, ":")
	if len(bounds) > 3 {
		return nil, fmt.Errorf("%w: too many colons in slice %q", ErrSyntax, p)
	}

	s := SliceSelector{}
	if err := parseSliceBound(&s.Start, bounds[0], "start", p); err != nil {
		return nil, err
	}
	if len(bounds) > 1 {
		if err := parseSliceBound(&s.End, bounds[1], "end", p); err != nil {
			return nil, err
		}
	}
	if len(bounds) == 3 {
		if err := parseSliceBound(&s.Step, bounds[2], "step", p); err != nil {
			return nil, err
		}
		if s.Step != nil && *s.Step == 0 {
			return nil, fmt.Errorf("%w: slice step cannot be zero in %q", ErrSyntax, p)
		}
	}
	return s, nil
}

func parseSliceBound(target **int, valueStr, boundType, fullSlice string) error {
	trimmed := strings.TrimSpace(valueStr)
	if trimmed == "" {
		return nil
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return fmt.Errorf("%w: slice %s %q in %q is not a number", ErrSyntax, boundType, trimmed, fullSlice)
	}
	*target = &v
	return nil
}

// findMatchingBracket finds the index of the ']' matching the '[' at
// start, respecting quoted strings so that selectors like ['a,b'] or
// filter literals like [?@.a == ']'] are not split on their internal
// commas/brackets.
func findMatchingBracket(expr string, start int) int {
	if start >= len(expr) || expr[start] != '[' {
		return -1
	}
	depth := 0
	inSingle, inDouble := false, false
	for i := start; i < len(expr); i++ {
		c := expr[i]
		if i > 0 && expr[i-1] == '\\' {
			continue
		}
		if c == '\'' && !inDouble {
			inSingle = !inSingle
			continue
		}
		if c == '"' && !inSingle {
			inDouble = !inDouble
			continue
		}
		if inSingle || inDouble {
			continue
		}
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep, ignoring occurrences inside quoted
// strings or nested brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteByte(c)
		case inSingle || inDouble:
			cur.WriteByte(c)
		case c == '[':
			depth++
			cur.WriteByte(c)
		case c == ']':
			depth--
			cur.WriteByte(c)
		case c == sep && depth == 0:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	parts = append(parts, cur.String())
	return parts
}
