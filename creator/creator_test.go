package creator

import (
	"testing"

	"github.com/trustd-project/trustd/cpe"
	"github.com/trustd-project/trustd/purl"
)

func TestPurlCreatorDedup(t *testing.T) {
	p1, err := purl.Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?arch=aarch64")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := purl.Parse("pkg:rpm/redhat/filesystem@3.8-6.el8?tags=other")
	if err != nil {
		t.Fatal(err)
	}

	c := NewPurlCreator()
	c.Add(p1)
	c.Add(p2)

	if len(c.base) != 1 {
		t.Fatalf("expected one distinct base_purl, got %d", len(c.base))
	}
	if len(c.versioned) != 1 {
		t.Fatalf("expected one distinct versioned_purl, got %d", len(c.versioned))
	}
	if len(c.qualified) != 2 {
		t.Fatalf("expected two distinct qualified_purl rows (differing qualifiers), got %d", len(c.qualified))
	}
}

func TestCpeCreatorDedup(t *testing.T) {
	w, err := cpe.UnbindFS("cpe:2.3:a:redhat:openshift:4.12:*:*:*:*:*:*:*")
	if err != nil {
		t.Fatal(err)
	}
	c := NewCpeCreator()
	id1 := c.Add(w)
	id2 := c.Add(w)
	if id1 != id2 {
		t.Fatal("expected identical UUID for identical WFN")
	}
	if len(c.seen) != 1 {
		t.Fatalf("expected dedup to one entry, got %d", len(c.seen))
	}
}

func TestLicenseCreatorStableID(t *testing.T) {
	c := NewLicenseCreator()
	id1 := c.Add("Apache-2.0", "")
	id2 := c.Add("Apache-2.0", "")
	if id1 != id2 {
		t.Fatal("expected identical UUID for identical license name/text")
	}
	id3 := c.Add("MIT", "")
	if id1 == id3 {
		t.Fatal("expected distinct UUID for distinct license name")
	}
}

func TestOrganizationCreatorStableID(t *testing.T) {
	c := NewOrganizationCreator()
	id1 := c.Add("Red Hat", "redhat", "https://redhat.com")
	id2 := c.Add("Red Hat", "redhat", "https://redhat.com")
	if id1 != id2 {
		t.Fatal("expected identical UUID for identical org name")
	}
}
