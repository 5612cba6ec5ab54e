// Package spdx adapts an SPDX document (parsed by spdx/tools-golang) into
// the format-agnostic sbom.Document shape the core ingester consumes.
//
// Grounded on claircore's pkg/sbom/spdx/spdx.go: walking sd.Packages into a
// lookup keyed by PackageSPDXIdentifier, reading cpe23Type external
// references off each package, and turning sd.Relationships into graph
// edges. Library: github.com/spdx/tools-golang.
package spdx

import (
	"fmt"

	spdxcommon "github.com/spdx/tools-golang/spdx/v2/common"
	spdxtools "github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/trustd-project/trustd/cpe"
	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/ingest/sbom"
	"github.com/trustd-project/trustd/purl"
)

// relationshipMap translates an SPDX relationship type string to our
// Relationship enum; unrecognized types fall back to RelationshipContains,
// the closest general-purpose edge.
var relationshipMap = map[spdxcommon.RelationshipType]entity.Relationship{
	"DESCRIBES":              entity.RelationshipDescribes,
	"CONTAINS":               entity.RelationshipContains,
	"DEPENDS_ON":             entity.RelationshipDependsOn,
	"DEV_DEPENDENCY_OF":      entity.RelationshipDevDependencyOf,
	"OPTIONAL_DEPENDENCY_OF": entity.RelationshipOptionalDependencyOf,
	"PROVIDED_DEPENDENCY_OF": entity.RelationshipProvidedDependencyOf,
	"TEST_DEPENDENCY_OF":     entity.RelationshipTestDependencyOf,
	"RUNTIME_DEPENDENCY_OF":  entity.RelationshipRuntimeDependencyOf,
	"EXAMPLE_OF":             entity.RelationshipExample,
	"GENERATES":              entity.RelationshipGenerates,
	"ANCESTOR_OF":            entity.RelationshipAncestor,
	"VARIANT_OF":             entity.RelationshipVariant,
	"BUILD_TOOL_OF":          entity.RelationshipBuildToolOf,
	"DEV_TOOL_OF":            entity.RelationshipDevToolOf,
}

// Convert normalizes sd into a sbom.Document.
func Convert(sd *spdxtools.Document) (sbom.Document, error) {
	var doc sbom.Document
	doc.Labels = map[string]string{"type": "spdx"}
	doc.DataLicenses = []string{sd.DataLicense}
	if sd.CreationInfo != nil {
		for _, c := range sd.CreationInfo.Creators {
			if c.CreatorType == "Organization" {
				doc.Suppliers = append(doc.Suppliers, c.Creator)
			} else {
				doc.Authors = append(doc.Authors, c.Creator)
			}
		}
	}

	for _, p := range sd.Packages {
		n := sbom.Node{
			ID:      string(p.PackageSPDXIdentifier),
			Name:    p.PackageName,
			Version: p.PackageVersion,
		}
		if decl := p.PackageLicenseDeclared; decl != "" && decl != "NOASSERTION" {
			n.LicenseExpression = &decl
		}
		for _, er := range p.PackageExternalReferences {
			switch er.RefType {
			case "purl":
				if parsed, err := purl.Parse(er.Locator); err == nil {
					n.Purls = append(n.Purls, parsed)
				}
			case "cpe23Type":
				if w, err := cpe.UnbindFS(er.Locator); err == nil {
					n.Cpes = append(n.Cpes, w)
				}
			}
		}
		doc.Nodes = append(doc.Nodes, n)
	}

	for _, r := range sd.Relationships {
		rel, ok := relationshipMap[r.Relationship]
		if !ok {
			rel = entity.RelationshipContains
		}
		left := string(r.RefA.ElementRefID)
		right := string(r.RefB.ElementRefID)
		if left == "" || right == "" {
			return sbom.Document{}, fmt.Errorf("spdx: relationship with empty element ref")
		}
		doc.Edges = append(doc.Edges, sbom.Edge{Left: left, Right: right, Relationship: rel})
	}
	return doc, nil
}
