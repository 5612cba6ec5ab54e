package purl

import (
	"testing"
)

// TestCanonicalization covers spec scenario S1: qualifier order must not
// affect structural equality or the derived qualifier UUID, and the
// canonical string form emits qualifiers in key-sorted order.
func TestCanonicalization(t *testing.T) {
	a, err := Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64&tags=test1")
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	b, err := Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?tags=test1&arch=aarch64")
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}

	if !a.Equal(b) {
		t.Fatalf("expected structural equality between %+v and %+v", a, b)
	}

	_, _, qa := a.UUIDs()
	_, _, qb := b.UUIDs()
	if qa != qb {
		t.Fatalf("expected identical qualifier_uuid, got %s != %s", qa, qb)
	}

	const want = "pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64&tags=test1"
	if got := a.String(); got != want {
		t.Fatalf("canonical string = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"pkg:maven/io.quarkus/quarkus-core@1.2.3?foo=bar",
		"pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64",
		"pkg:npm/%40fastify/fastify@3.8.0",
		"pkg:golang/github.com/quay/claircore@v1.0.0",
	}
	for _, s := range cases {
		p, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		reparsed, err := Parse(p.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", p.String(), err)
		}
		if !p.Equal(reparsed) {
			t.Fatalf("parse(to_string(%q)) != original: %+v vs %+v", s, reparsed, p)
		}
	}
}

func TestUUIDLevels(t *testing.T) {
	base, err := Parse("pkg:rpm/redhat/filesystem")
	if err != nil {
		t.Fatal(err)
	}
	v1 := base.WithVersion("1.0")
	v2 := base.WithVersion("2.0")

	pkgUUID, _, _ := base.UUIDs()
	pkgUUID1, verUUID1, _ := v1.UUIDs()
	pkgUUID2, verUUID2, _ := v2.UUIDs()

	if pkgUUID != pkgUUID1 || pkgUUID1 != pkgUUID2 {
		t.Fatal("expected identical package_uuid across versions")
	}
	if verUUID1 == verUUID2 {
		t.Fatal("expected distinct version_uuid across differing versions")
	}
}

func TestToBaseToVersion(t *testing.T) {
	p, err := Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64")
	if err != nil {
		t.Fatal(err)
	}
	base := p.ToBase()
	if base.Version != "" || len(base.Qualifiers) != 0 {
		t.Fatalf("ToBase should drop version and qualifiers: %+v", base)
	}
	ver := p.ToVersion()
	if ver.Version != p.Version || len(ver.Qualifiers) != 0 {
		t.Fatalf("ToVersion should keep version, drop qualifiers: %+v", ver)
	}
}

func TestLike(t *testing.T) {
	p, err := Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Like("filesystem") {
		t.Fatal("expected substring match")
	}
	if !p.Like("redhat%2Ffilesystem") {
		t.Fatal("expected percent-decoded substring match")
	}
	if p.Like("nonexistent") {
		t.Fatal("unexpected match")
	}
}

func TestEqualString(t *testing.T) {
	p, err := Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64")
	if err != nil {
		t.Fatal(err)
	}
	if !p.EqualString("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64") {
		t.Fatal("expected EqualString to match identical canonical form")
	}
	if p.CompareString("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64") != 0 {
		t.Fatal("expected CompareString == 0 for structurally equal strings")
	}
	if p.CompareString("zzz-not-a-purl") == 0 {
		t.Fatal("expected non-zero compare against an unrelated string")
	}
}

func TestMarshalJSON(t *testing.T) {
	p, err := Parse("pkg:maven/io.quarkus/quarkus-core@1.2.3?foo=bar")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	const want = `"pkg:maven/io.quarkus/quarkus-core@1.2.3?foo=bar"`
	if string(b) != want {
		t.Fatalf("MarshalJSON = %s, want %s", b, want)
	}

	var round Purl
	if err := round.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if !round.Equal(p) {
		t.Fatalf("round-tripped purl differs: %+v vs %+v", round, p)
	}
}
