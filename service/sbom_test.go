package service

import (
	"testing"

	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/ingest/sbom"
)

func TestOrientSwapsEndpointsForLeft(t *testing.T) {
	e := sbom.Edge{Left: "a", Right: "b", Relationship: entity.RelationshipDependsOn}
	got := orient(e, Left)
	if got.Left != "b" || got.Right != "a" {
		t.Fatalf("orient(Left) = %+v, want swapped endpoints", got)
	}
}

func TestOrientLeavesEndpointsForRight(t *testing.T) {
	e := sbom.Edge{Left: "a", Right: "b", Relationship: entity.RelationshipDependsOn}
	got := orient(e, Right)
	if got.Left != "a" || got.Right != "b" {
		t.Fatalf("orient(Right) = %+v, want unchanged endpoints", got)
	}
}

func TestReferenceHelpers(t *testing.T) {
	all := AllPackages()
	if !all.All {
		t.Fatal("AllPackages() should set All")
	}
	one := OnePackage("node-1")
	if one.All || one.NodeID != "node-1" {
		t.Fatalf("OnePackage() = %+v", one)
	}
}
