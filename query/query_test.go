package query

import (
	"strings"
	"testing"

	"github.com/doug-martin/goqu/v8"
)

func whereSQL(t *testing.T, where interface{}) string {
	t.Helper()
	if where == nil {
		return ""
	}
	ds := goqu.Dialect("postgres").From("advisory").Where(where.(goqu.Expression))
	s, _, err := ds.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}
	idx := strings.Index(s, "WHERE ")
	if idx < 0 {
		t.Fatalf("no WHERE clause in %q", s)
	}
	return s[idx+len("WHERE "):]
}

// severityTranslator mirrors the teacher-adjacent translator test fixture
// from columns.rs: maps a domain "severity" field onto a numeric "score"
// column via sub-expression splicing.
func severityTranslator(field, op, value string) (string, bool) {
	switch {
	case field == "severity" && op == "=" && value == "low":
		return "score>=0&score<3", true
	case field == "severity" && op == "=" && value == "medium":
		return "score>=3&score<6", true
	case field == "severity" && op == "=" && value == "high":
		return "score>=6&score<10", true
	}
	return "", false
}

// TestSeverityTranslator covers spec scenario S3.
func TestSeverityTranslator(t *testing.T) {
	cols := NewColumns().
		AddColumn("advisory", "score", TypeFloat).
		WithTranslator(severityTranslator)

	q, err := Parse("severity=low|high")
	if err != nil {
		t.Fatal(err)
	}
	where, _, err := q.Compile(cols)
	if err != nil {
		t.Fatal(err)
	}
	got := whereSQL(t, where)
	for _, want := range []string{`"advisory"."score" >= 0`, `"advisory"."score" < 3`, `"advisory"."score" >= 6`, `"advisory"."score" < 10`, "OR", "AND"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected clause to contain %q, got %q", want, got)
		}
	}
}

// TestJSONKeyQuery covers spec scenario S4.
func TestJSONKeyQuery(t *testing.T) {
	cols := NewColumns().
		AddColumn("advisory", "purl", TypeJSON).
		JSONKeys("purl", []string{"name", "type", "version"})

	q, err := Parse("name~log4j&version>1.0")
	if err != nil {
		t.Fatal(err)
	}
	where, _, err := q.Compile(cols)
	if err != nil {
		t.Fatal(err)
	}
	got := whereSQL(t, where)
	if !strings.Contains(got, `ILIKE`) || !strings.Contains(got, `log4j`) {
		t.Fatalf("expected ILIKE log4j clause, got %q", got)
	}
	if !strings.Contains(got, `1.0`) {
		t.Fatalf("expected version comparison, got %q", got)
	}
}

func TestInvalidFieldName(t *testing.T) {
	cols := NewColumns().AddColumn("advisory", "location", TypeString)
	q, err := Parse("missing=gone")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Compile(cols); err == nil {
		t.Fatal("expected SearchSyntax-style error for unknown field")
	}
}

func TestFreeTextAcrossStringishColumns(t *testing.T) {
	cols := NewColumns().
		AddColumn("advisory", "location", TypeString).
		AddColumn("advisory", "title", TypeString).
		AddColumn("advisory", "score", TypeFloat)

	q, err := Parse("foo")
	if err != nil {
		t.Fatal(err)
	}
	where, _, err := q.Compile(cols)
	if err != nil {
		t.Fatal(err)
	}
	got := whereSQL(t, where)
	if strings.Count(got, "ILIKE") != 2 {
		t.Fatalf("expected free text to OR across the two string columns only, got %q", got)
	}
}

func TestSortClause(t *testing.T) {
	cols := NewColumns().AddColumn("advisory", "score", TypeFloat)
	q, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	q, err = q.Sort("score:desc")
	if err != nil {
		t.Fatal(err)
	}
	_, order, err := q.Compile(cols)
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 {
		t.Fatalf("expected one order expression, got %d", len(order))
	}
}

func TestSortUnknownFieldErrors(t *testing.T) {
	cols := NewColumns().AddColumn("advisory", "score", TypeFloat)
	q, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	q, err = q.Sort("nope")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Compile(cols); err == nil {
		t.Fatal("expected error compiling sort on unknown field")
	}
}

func TestEnumValidation(t *testing.T) {
	cols := NewColumns().AddEnumColumn("cvss3", "severity", TypeEnum, []string{"none", "low", "medium", "high", "critical"})
	q, err := Parse("severity=extreme")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Compile(cols); err == nil {
		t.Fatal("expected error for invalid enum variant")
	}
}
