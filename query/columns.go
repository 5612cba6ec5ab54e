// Package query implements the filter/sort expression DSL and the per-query
// Columns registry it compiles against, producing goqu expressions.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v8"
	"github.com/doug-martin/goqu/v8/exp"
)

// ColumnType classifies a column for the purposes of operator validation and
// the free-text "string-ish" set.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInteger
	TypeFloat
	TypeBool
	TypeTimestamp
	TypeEnum
	TypeJSON
)

func (t ColumnType) stringish() bool { return t == TypeString }

// column is one entry in the registry: either a real/added column reference
// or a registered expression, paired with its type.
type column struct {
	name    string
	table   string // non-empty for TableColumn references
	expr    exp.Expression
	typ     ColumnType
	variant []string // valid values, for TypeEnum
}

func (c column) identifier() exp.IdentifierExpression {
	if c.table != "" {
		return goqu.T(c.table).Col(c.name)
	}
	return goqu.C(c.name)
}

func (c column) expression() exp.Expression {
	if c.expr != nil {
		return c.expr
	}
	return c.identifier()
}

// Translator rewrites a domain-level (field, op, value) triple into a DSL
// fragment to be reparsed and spliced in at the atom's position. Returning
// ("", false) means the translator has no opinion on this atom, so it
// compiles normally.
type Translator func(field, op, value string) (string, bool)

// Columns is a per-query virtual column set: real columns from an entity,
// added columns/expressions (e.g. synthetic aggregates), table aliases, and
// JSON-field projections, plus an optional Translator.
//
// Grounded on original_source's db/query/columns.rs Columns type; the
// "added expressions take precedence over same-named real columns" and
// "json keys projected through ->> resolve as top-level field names" rules
// are ported from there.
type Columns struct {
	cols       []column
	jsonKeys   map[string]string // field -> json column name
	translator Translator
}

// WithTranslator attaches a Translator to the registry.
func (c Columns) WithTranslator(t Translator) Columns {
	c.translator = t
	return c
}

// NewColumns returns an empty registry.
func NewColumns() Columns {
	return Columns{jsonKeys: map[string]string{}}
}

// AddColumn registers a real or synthetic column by (table, name, type).
// table may be empty for a bare identifier (e.g. a synthetic column exposed
// by an enclosing sub-select).
func (c Columns) AddColumn(table, name string, typ ColumnType) Columns {
	c.cols = append(c.cols, column{name: name, table: table, typ: typ})
	return c
}

// AddEnumColumn is AddColumn for a TypeEnum column, recording its valid
// variants for validation of `=`/`!=` atoms.
func (c Columns) AddEnumColumn(table, name string, typ ColumnType, variants []string) Columns {
	c.cols = append(c.cols, column{name: name, table: table, typ: typ, variant: variants})
	return c
}

// AddExpr registers a named expression; it takes precedence over any
// same-named real column when the field is looked up.
func (c Columns) AddExpr(name string, e exp.Expression, typ ColumnType) Columns {
	c.cols = append([]column{{name: name, expr: e, typ: typ}}, c.cols...)
	return c
}

// AddColumns merges columns from another registry that aren't already
// present by name (first writer wins, matching the teacher's add_columns).
func (c Columns) AddColumns(other Columns) Columns {
	existing := map[string]bool{}
	for _, x := range c.cols {
		existing[strings.ToLower(x.name)] = true
	}
	for _, x := range other.cols {
		if !existing[strings.ToLower(x.name)] {
			c.cols = append(c.cols, x)
		}
	}
	for k, v := range other.jsonKeys {
		if _, ok := c.jsonKeys[k]; !ok {
			c.jsonKeys[k] = v
		}
	}
	return c
}

// Alias renames the table component of every column whose table matches
// from, case-insensitively.
func (c Columns) Alias(from, to string) Columns {
	for i := range c.cols {
		if strings.EqualFold(c.cols[i].table, from) {
			c.cols[i].table = to
		}
	}
	return c
}

// JSONKeys declares that column is a JSON object whose fields are
// addressable as top-level field names via `column ->> 'field'`.
func (c Columns) JSONKeys(column string, fields []string) Columns {
	for _, f := range fields {
		c.jsonKeys[f] = column
	}
	return c
}

// forField resolves field to an (expression, type), honoring the
// expressions > real-columns > json-key-projection precedence order.
func (c Columns) forField(field string) (exp.Expression, ColumnType, []string, error) {
	for _, col := range c.cols {
		if col.expr != nil && strings.EqualFold(col.name, field) {
			return col.expr, col.typ, col.variant, nil
		}
	}
	for _, col := range c.cols {
		if col.expr == nil && strings.EqualFold(col.name, field) {
			return col.expression(), col.typ, col.variant, nil
		}
	}
	if jsonCol, ok := c.jsonKeys[field]; ok {
		for _, col := range c.cols {
			if strings.EqualFold(col.name, jsonCol) {
				return jsonProject(col.expression(), field), TypeString, nil, nil
			}
		}
	}
	return nil, 0, nil, &Error{Op: "for_field", Message: fmt.Sprintf("invalid field name: %q", field)}
}

// jsonProject builds `column ->> 'field'`.
func jsonProject(column exp.Expression, field string) exp.Expression {
	return goqu.L("(? ->> ?)", column, field)
}

// stringish returns every expression in the registry whose type is
// string-ish, including JSON-field projections, in a stable order: real
// columns/expressions first (registration order), then JSON keys sorted by
// field name for determinism.
func (c Columns) stringish() []exp.Expression {
	var out []exp.Expression
	for _, col := range c.cols {
		if col.typ.stringish() {
			out = append(out, col.expression())
		}
	}
	keys := make([]string, 0, len(c.jsonKeys))
	for k := range c.jsonKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, field := range keys {
		jsonCol := c.jsonKeys[field]
		for _, col := range c.cols {
			if strings.EqualFold(col.name, jsonCol) {
				out = append(out, jsonProject(col.expression(), field))
				break
			}
		}
	}
	return out
}

// Error is returned for registry lookup and DSL compilation failures.
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("query: %s: %s", e.Op, e.Message) }
