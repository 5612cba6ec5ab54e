package osv

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ossf/osv-schema/bindings/go/osvschema"

	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/purl"
)

func mustPurl(t *testing.T, s string) purl.Purl {
	t.Helper()
	p, err := purl.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return p
}

func TestSchemeForRangeDispatch(t *testing.T) {
	cases := []struct {
		rangeType osvschema.RangeType
		eco       osvschema.Ecosystem
		want      entity.VersionScheme
	}{
		{"SEMVER", "", entity.SchemeSemver},
		{"GIT", "", entity.SchemeGit},
		{"ECOSYSTEM", "Maven", entity.SchemeMaven},
		{"ECOSYSTEM", "PyPI", entity.SchemePython},
		{"ECOSYSTEM", "Go", entity.SchemeGolang},
		{"ECOSYSTEM", "npm", entity.SchemeNpm},
		{"ECOSYSTEM", "Packagist", entity.SchemePackagist},
		{"ECOSYSTEM", "NuGet", entity.SchemeNuGet},
		{"ECOSYSTEM", "RubyGems", entity.SchemeGem},
		{"ECOSYSTEM", "Hex", entity.SchemeHex},
		{"ECOSYSTEM", "SwiftURL", entity.SchemeSwift},
		{"ECOSYSTEM", "Pub", entity.SchemePub},
	}
	for _, c := range cases {
		got, ok := schemeForRange(c.rangeType, c.eco)
		if !ok {
			t.Errorf("schemeForRange(%s, %s): expected a match", c.rangeType, c.eco)
			continue
		}
		if got != c.want {
			t.Errorf("schemeForRange(%s, %s) = %s, want %s", c.rangeType, c.eco, got, c.want)
		}
	}
}

func TestSchemeForRangeUnknownEcosystemFallsBack(t *testing.T) {
	if _, ok := schemeForRange("ECOSYSTEM", "SomeObscureEcosystem"); ok {
		t.Fatal("expected no scheme match for an ecosystem without a dispatch entry")
	}
}

func TestRangeToSpecIntroducedOnly(t *testing.T) {
	id := uuid.New()
	p := mustPurl(t, "pkg:golang/example.com/mod")
	out := rangeToSpec(id, p, entity.SchemeSemver, []osvschema.Event{
		{Introduced: "1.0.0"},
	})
	if len(out) != 1 {
		t.Fatalf("got %d statuses, want 1", len(out))
	}
	s := out[0]
	if !s.Spec.IsRange || s.Spec.RangeLow.Kind != entity.Inclusive || s.Spec.RangeLow.Value != "1.0.0" {
		t.Fatalf("unexpected low bound: %+v", s.Spec.RangeLow)
	}
	if s.Spec.RangeHigh.Kind != entity.Unbounded {
		t.Fatalf("expected unbounded high, got %+v", s.Spec.RangeHigh)
	}
}

func TestRangeToSpecIntroducedAndFixedEmitsTwoStatuses(t *testing.T) {
	id := uuid.New()
	p := mustPurl(t, "pkg:golang/example.com/mod")
	out := rangeToSpec(id, p, entity.SchemeSemver, []osvschema.Event{
		{Introduced: "1.0.0"},
		{Fixed: "1.2.0"},
	})
	if len(out) != 2 {
		t.Fatalf("got %d statuses, want 2 (range-affected + exact-fixed)", len(out))
	}
	if out[0].Status != entity.StatusAffected || !out[0].Spec.IsRange {
		t.Fatalf("first status should be the affected range: %+v", out[0])
	}
	if out[0].Spec.RangeHigh.Kind != entity.Exclusive || out[0].Spec.RangeHigh.Value != "1.2.0" {
		t.Fatalf("expected exclusive high at 1.2.0, got %+v", out[0].Spec.RangeHigh)
	}
	if out[1].Status != entity.StatusFixed || out[1].Spec.IsRange || out[1].Spec.Exact != "1.2.0" {
		t.Fatalf("second status should be exact fixed at 1.2.0: %+v", out[1])
	}
}

func TestRangeToSpecLastAffectedIsInclusive(t *testing.T) {
	id := uuid.New()
	p := mustPurl(t, "pkg:golang/example.com/mod")
	out := rangeToSpec(id, p, entity.SchemeSemver, []osvschema.Event{
		{Introduced: "1.0.0"},
		{LastAffected: "1.2.0"},
	})
	if len(out) != 1 {
		t.Fatalf("got %d statuses, want 1", len(out))
	}
	if out[0].Spec.RangeHigh.Kind != entity.Inclusive || out[0].Spec.RangeHigh.Value != "1.2.0" {
		t.Fatalf("expected inclusive high at 1.2.0 for last_affected, got %+v", out[0].Spec.RangeHigh)
	}
}

func TestMatchVersionsWindow(t *testing.T) {
	versions := []string{"1.0.0", "1.0.1", "1.1.0", "1.2.0", "1.3.0"}
	got := matchVersions(versions, "1.0.1", "1.3.0")
	want := []string{"1.0.1", "1.1.0", "1.2.0"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMatchVersionsNoEndCollectsThroughList(t *testing.T) {
	versions := []string{"1.0.0", "1.0.1", "1.1.0"}
	got := matchVersions(versions, "1.0.1", "")
	if len(got) != 2 || got[0] != "1.0.1" || got[1] != "1.1.0" {
		t.Fatalf("got %v", got)
	}
}

func TestEnumeratedFallbackTracksMultipleWindows(t *testing.T) {
	id := uuid.New()
	p := mustPurl(t, "pkg:golang/example.com/mod")
	versions := []string{"1.0.0", "1.0.1", "1.1.0", "2.0.0", "2.0.1"}
	events := []osvschema.Event{
		{Introduced: "1.0.0"},
		{Fixed: "1.1.0"},
		{Introduced: "2.0.0"},
	}
	out := enumeratedFallback(id, p, events, versions)

	var affected, fixed int
	for _, s := range out {
		switch s.Status {
		case entity.StatusAffected:
			affected++
		case entity.StatusFixed:
			fixed++
		}
	}
	if fixed != 1 {
		t.Fatalf("expected exactly 1 fixed status, got %d", fixed)
	}
	// window 1 (1.0.0 up to, excluding, 1.1.0): 1.0.0, 1.0.1.
	// window 2, trailing and unterminated (from 2.0.0 to end of list): 2.0.0, 2.0.1.
	if affected != 4 {
		t.Fatalf("expected 4 affected statuses (1.0.0, 1.0.1, 2.0.0, 2.0.1), got %d: %+v", affected, out)
	}
}

func TestDetectIssuerFromWellKnownReference(t *testing.T) {
	refs := []osvschema.Reference{
		{Type: "WEB", URL: "https://example.com/blog/post"},
		{Type: "ADVISORY", URL: "https://github.com/advisories/GHSA-xxxx-yyyy-zzzz"},
	}
	if got := detectIssuer(refs); got != "GitHub" {
		t.Fatalf("detectIssuer = %q, want GitHub", got)
	}
}

func TestDetectIssuerIgnoresNonAdvisoryReferences(t *testing.T) {
	refs := []osvschema.Reference{
		{Type: "WEB", URL: "https://github.com/advisories/GHSA-xxxx-yyyy-zzzz"},
	}
	if got := detectIssuer(refs); got != "" {
		t.Fatalf("detectIssuer = %q, want empty (reference is not type ADVISORY)", got)
	}
}

func TestTranslateExtractsCVEAliasesOnly(t *testing.T) {
	v := osvschema.Vulnerability{
		ID:      "GHSA-xxxx-yyyy-zzzz",
		Summary: "a bad bug",
		Aliases: []string{"GHSA-xxxx-yyyy-zzzz", "CVE-2023-12345"},
	}
	r := Translate(v, "", uuid.New(), uuid.New())
	if len(r.Vulnerabilities) != 1 || r.Vulnerabilities[0].ID != "CVE-2023-12345" {
		t.Fatalf("expected only the CVE alias to become a Vulnerability, got %+v", r.Vulnerabilities)
	}
	if len(r.AdvisoryVulns) != 1 {
		t.Fatalf("expected 1 advisory_vulnerability link, got %d", len(r.AdvisoryVulns))
	}
}

func TestTranslateRecordsWarningOnBadCvss(t *testing.T) {
	v := osvschema.Vulnerability{
		ID:      "GHSA-xxxx",
		Aliases: []string{"CVE-2023-1"},
		Severity: []osvschema.Severity{
			{Type: "CVSS_V3", Score: "not-a-vector"},
		},
	}
	r := Translate(v, "", uuid.New(), uuid.New())
	if len(r.Cvss3s) != 0 {
		t.Fatalf("expected no Cvss3 rows from a malformed vector, got %d", len(r.Cvss3s))
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("expected 1 warning recorded, got %d", len(r.Warnings))
	}
}

func TestSpecLiteralRendersBounds(t *testing.T) {
	exact := specLiteral(entity.NewExact("1.2.3"))
	if exact != "=1.2.3" {
		t.Fatalf("exact literal = %q", exact)
	}
	rng := specLiteral(entity.NewRange(
		entity.Bound{Kind: entity.Inclusive, Value: "1.0.0"},
		entity.Bound{Kind: entity.Exclusive, Value: "2.0.0"},
	))
	if rng != "[1.0.0,2.0.0)" {
		t.Fatalf("range literal = %q", rng)
	}
	unbounded := specLiteral(entity.NewRange(
		entity.Bound{Kind: entity.Unbounded},
		entity.Bound{Kind: entity.Unbounded},
	))
	if unbounded != "(-inf,+inf)" {
		t.Fatalf("unbounded literal = %q", unbounded)
	}
}
