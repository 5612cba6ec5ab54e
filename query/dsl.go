package query

import "strings"

// op is one of the DSL's comparison operators.
type op string

const (
	opEq       op = "="
	opNeq      op = "!="
	opLike     op = "~"
	opNotLike  op = "!~"
	opGt       op = ">"
	opGte      op = ">="
	opLt       op = "<"
	opLte      op = "<="
)

// atom is a single filter term: either `field op value` or a bare free-text
// value.
type atom struct {
	field    string // empty for free-text atoms
	op       op
	value    string
	freeText bool
}

// andTerm is a list of atoms ANDed together (`&`).
type andTerm []atom

// filterExpr is a list of andTerms ORed together (`|` at the top level).
type filterExpr []andTerm

// sortClause is one `field[:asc|:desc]` entry.
type sortClause struct {
	field string
	desc  bool
}

// parseFilter parses the `filter` production: `andTerm ('|' andTerm)*`.
// `&` and `|` may be escaped with a backslash to appear literally in a
// value.
//
// A top-level OR segment that is a single bare (free-text) atom is treated
// as another value alternative for the nearest preceding fielded atom in
// the same OR chain, rather than as a standalone free-text search term:
// this is how "severity=low|high" means "(severity=low) OR (severity=high)"
// rather than "(severity=low) OR (free text 'high')", per the grammar's
// "value may be v1|v2|..." rule applied across the top-level '|' split.
func parseFilter(s string) (filterExpr, error) {
	if s == "" {
		return nil, nil
	}
	var expr filterExpr
	var lastField string
	var lastOp op
	haveLast := false
	for _, termStr := range splitUnescaped(s, '|') {
		term, err := parseAndTerm(termStr)
		if err != nil {
			return nil, err
		}
		if len(term) == 1 && term[0].freeText && haveLast {
			term[0] = atom{field: lastField, op: lastOp, value: term[0].value}
		}
		if len(term) == 1 && !term[0].freeText {
			lastField, lastOp, haveLast = term[0].field, term[0].op, true
		} else {
			haveLast = false
		}
		expr = append(expr, term)
	}
	return expr, nil
}

func parseAndTerm(s string) (andTerm, error) {
	var term andTerm
	for _, atomStr := range splitUnescaped(s, '&') {
		a, err := parseAtom(atomStr)
		if err != nil {
			return nil, err
		}
		term = append(term, a)
	}
	return term, nil
}

// operators in longest-match-first order so `!=` isn't mistaken for `!~`
// matched against a bare `=`, etc.
var operators = []op{opNeq, opNotLike, opGte, opLte, opEq, opLike, opGt, opLt}

func parseAtom(s string) (atom, error) {
	for _, o := range operators {
		if idx := strings.Index(s, string(o)); idx >= 0 {
			field := s[:idx]
			value := s[idx+len(o):]
			if field == "" {
				return atom{}, &Error{Op: "parse", Message: "empty field name in atom " + quoteAtom(s)}
			}
			return atom{field: field, op: o, value: value}, nil
		}
	}
	return atom{freeText: true, value: s}, nil
}

func quoteAtom(s string) string { return "\"" + s + "\"" }

// parseSort parses the `sort` production: `sortClause (',' sortClause)*`.
func parseSort(s string) ([]sortClause, error) {
	if s == "" {
		return nil, nil
	}
	var clauses []sortClause
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, hasDir := strings.Cut(part, ":")
		sc := sortClause{field: field}
		if hasDir {
			switch strings.ToLower(dir) {
			case "asc":
				sc.desc = false
			case "desc":
				sc.desc = true
			default:
				return nil, &Error{Op: "parse_sort", Message: "invalid sort direction: " + dir}
			}
		}
		clauses = append(clauses, sc)
	}
	return clauses, nil
}

// splitUnescaped splits s on sep, treating a backslash-escaped sep (`\&`,
// `\|`) as a literal character rather than a separator. The backslash is
// consumed; the escaped character is kept.
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			cur.WriteByte(s[i+1])
			i++
		case s[i] == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	parts = append(parts, cur.String())
	return parts
}
