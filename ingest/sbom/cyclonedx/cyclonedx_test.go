package cyclonedx

import (
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

func TestConvertComponentsAndDependencies(t *testing.T) {
	components := []cdx.Component{
		{BOMRef: "root", Name: "app", Version: "1.0.0"},
		{BOMRef: "dep1", Name: "libfoo", Version: "2.0.0", PackageURL: "pkg:golang/example.com/foo@2.0.0"},
	}
	deps := []cdx.Dependency{
		{Ref: "root", Dependencies: &[]string{"dep1"}},
	}
	bom := &cdx.BOM{
		Components:   &components,
		Dependencies: &deps,
	}

	doc, err := Convert(bom)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(doc.Nodes))
	}
	if len(doc.Edges) != 1 || doc.Edges[0].Left != "root" || doc.Edges[0].Right != "dep1" {
		t.Fatalf("expected one root->dep1 edge, got %+v", doc.Edges)
	}

	found := false
	for _, n := range doc.Nodes {
		if n.ID == "dep1" {
			found = true
			if len(n.Purls) != 1 {
				t.Fatalf("expected dep1 to carry a parsed purl, got %+v", n.Purls)
			}
		}
	}
	if !found {
		t.Fatal("dep1 node missing")
	}
}

func TestConvertWithoutDependenciesIsEmpty(t *testing.T) {
	bom := &cdx.BOM{}
	doc, err := Convert(bom)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(doc.Nodes) != 0 || len(doc.Edges) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}
