package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v8"
	"github.com/doug-martin/goqu/v8/exp"
)

// Query is a parsed filter+sort DSL string, not yet bound to a Columns
// registry.
type Query struct {
	raw    string
	filter filterExpr
	sort   []sortClause
}

// Parse parses a bare filter expression (no sort clause). Use Sort to
// attach one.
func Parse(q string) (Query, error) {
	f, err := parseFilter(q)
	if err != nil {
		return Query{}, err
	}
	return Query{raw: q, filter: f}, nil
}

// Sort returns a copy of q with the given sort-clause string attached.
func (q Query) Sort(s string) (Query, error) {
	sc, err := parseSort(s)
	if err != nil {
		return Query{}, err
	}
	q.sort = sc
	return q, nil
}

// Compile resolves q against cols, returning the WHERE expression (nil if
// the filter is empty) and the ORDER BY expressions.
func (q Query) Compile(cols Columns) (where exp.Expression, order []exp.OrderedExpression, err error) {
	where, err = compileFilter(q.filter, cols)
	if err != nil {
		return nil, nil, err
	}
	order, err = compileSort(q.sort, cols)
	if err != nil {
		return nil, nil, err
	}
	return where, order, nil
}

func compileSort(clauses []sortClause, cols Columns) ([]exp.OrderedExpression, error) {
	var out []exp.OrderedExpression
	for _, c := range clauses {
		e, _, _, err := cols.forField(c.field)
		if err != nil {
			return nil, err
		}
		if c.desc {
			out = append(out, e.(exp.Orderable).Desc())
		} else {
			out = append(out, e.(exp.Orderable).Asc())
		}
	}
	return out, nil
}

func compileFilter(f filterExpr, cols Columns) (exp.Expression, error) {
	if len(f) == 0 {
		return nil, nil
	}
	var orParts []exp.Expression
	for _, term := range f {
		e, err := compileAndTerm(term, cols)
		if err != nil {
			return nil, err
		}
		orParts = append(orParts, e)
	}
	if len(orParts) == 1 {
		return orParts[0], nil
	}
	return goqu.Or(orParts...), nil
}

func compileAndTerm(term andTerm, cols Columns) (exp.Expression, error) {
	var andParts []exp.Expression
	for _, a := range term {
		e, err := compileAtom(a, cols)
		if err != nil {
			return nil, err
		}
		andParts = append(andParts, e)
	}
	if len(andParts) == 1 {
		return andParts[0], nil
	}
	return goqu.And(andParts...), nil
}

func compileAtom(a atom, cols Columns) (exp.Expression, error) {
	if a.freeText {
		return compileFreeText(a.value, cols)
	}

	// Translator takes precedence: it may rewrite this atom into a whole DSL
	// fragment to be reparsed and spliced in at this position.
	if translated, ok := cols.translate(a.field, string(a.op), a.value); ok {
		sub, err := parseFilter(translated)
		if err != nil {
			return nil, &Error{Op: "translate", Message: fmt.Sprintf("translator produced invalid fragment %q: %v", translated, err)}
		}
		return compileFilter(sub, cols)
	}

	colExpr, typ, variants, err := cols.forField(a.field)
	if err != nil {
		return nil, err
	}

	alts := splitUnescaped(a.value, '|')
	if len(alts) > 1 {
		var parts []exp.Expression
		for _, alt := range alts {
			e, err := compileComparison(colExpr, typ, variants, a.op, alt)
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
		}
		return goqu.Or(parts...), nil
	}
	return compileComparison(colExpr, typ, variants, a.op, a.value)
}

// translate adapts Columns.translator lookup into the (string, bool) shape
// compileAtom wants; Columns doesn't export its translator directly so this
// lives alongside the compiler instead.
func (c Columns) translate(field, op, value string) (string, bool) {
	if c.translator == nil {
		return "", false
	}
	return c.translator(field, op, value)
}

func compileComparison(col exp.Expression, typ ColumnType, variants []string, o op, value string) (exp.Expression, error) {
	switch o {
	case opLike, opNotLike:
		if typ != TypeString {
			return nil, &Error{Op: "compile", Message: fmt.Sprintf("operator %q only valid on string columns", o)}
		}
		pattern := "%" + value + "%"
		if o == opLike {
			return goqu.L("? ILIKE ?", col, pattern), nil
		}
		return goqu.L("? NOT ILIKE ?", col, pattern), nil
	case opEq, opNeq:
		if typ == TypeEnum && len(variants) > 0 && !containsFold(variants, value) {
			return nil, &Error{Op: "compile", Message: fmt.Sprintf("invalid enum value %q", value)}
		}
		v, err := coerce(typ, value)
		if err != nil {
			return nil, err
		}
		if o == opEq {
			return goqu.L("? = ?", col, v), nil
		}
		return goqu.L("? <> ?", col, v), nil
	case opGt, opGte, opLt, opLte:
		v, err := coerce(typ, value)
		if err != nil {
			return nil, err
		}
		return goqu.L("? "+string(o)+" ?", col, v), nil
	default:
		return nil, &Error{Op: "compile", Message: fmt.Sprintf("unknown operator %q", o)}
	}
}

func containsFold(variants []string, v string) bool {
	for _, c := range variants {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

// coerce parses value into the Go type matching typ, failing with
// SearchSyntax semantics on malformed numeric/temporal literals.
func coerce(typ ColumnType, value string) (any, error) {
	switch typ {
	case TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &Error{Op: "coerce", Message: fmt.Sprintf("invalid integer %q", value)}
		}
		return n, nil
	case TypeFloat:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &Error{Op: "coerce", Message: fmt.Sprintf("invalid float %q", value)}
		}
		return n, nil
	case TypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &Error{Op: "coerce", Message: fmt.Sprintf("invalid bool %q", value)}
		}
		return b, nil
	case TypeTimestamp:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, &Error{Op: "coerce", Message: fmt.Sprintf("invalid timestamp %q", value)}
		}
		return t, nil
	default:
		return value, nil
	}
}

// compileFreeText ORs the value across every string-ish column in the
// registry, per the free-text atom rule.
func compileFreeText(value string, cols Columns) (exp.Expression, error) {
	targets := cols.stringish()
	if len(targets) == 0 {
		return nil, &Error{Op: "compile", Message: "free-text search with no string-ish columns in registry"}
	}
	pattern := "%" + value + "%"
	parts := make([]exp.Expression, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, goqu.L("? ILIKE ?", t, pattern))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return goqu.Or(parts...), nil
}
