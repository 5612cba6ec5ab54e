package sbom

import (
	"testing"
)

func TestValidateRejectsBrokenReference(t *testing.T) {
	doc := Document{
		Nodes: []Node{{ID: "a"}},
		Edges: []Edge{{Left: "a", Right: "ghost"}},
	}
	err := doc.validate()
	if err == nil {
		t.Fatal("expected an error for a dangling reference")
	}
	ire, ok := err.(*InvalidReferenceError)
	if !ok {
		t.Fatalf("expected *InvalidReferenceError, got %T", err)
	}
	if ire.Ref != "ghost" {
		t.Fatalf("Ref = %q, want ghost", ire.Ref)
	}
	const want = "invalid content: Invalid reference: ghost"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidateAllowsSelfReferenceAndCycle(t *testing.T) {
	doc := Document{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{
			{Left: "a", Right: "a"},
			{Left: "a", Right: "b"},
			{Left: "b", Right: "a"},
		},
	}
	if err := doc.validate(); err != nil {
		t.Fatalf("expected cycles/self-references to validate, got %v", err)
	}
}
