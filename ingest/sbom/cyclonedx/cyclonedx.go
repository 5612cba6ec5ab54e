// Package cyclonedx adapts a CycloneDX BOM (parsed by CycloneDX/cyclonedx-go)
// into the format-agnostic sbom.Document shape the core ingester consumes.
//
// Grounded on the CycloneDX writer/reader shape visible across the pack's
// other_examples (trivy's pkg/sbom/cyclonedx): components keyed by BOMRef,
// PURL/CPE read straight off the component, and the dependency graph
// (Dependencies[].Ref -> Dependencies[].Dependencies) turned into
// depends_on edges. Library: github.com/CycloneDX/cyclonedx-go.
package cyclonedx

import (
	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/trustd-project/trustd/cpe"
	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/ingest/sbom"
	"github.com/trustd-project/trustd/purl"
)

// Convert normalizes bom into a sbom.Document.
func Convert(bom *cdx.BOM) (sbom.Document, error) {
	var doc sbom.Document
	doc.Labels = map[string]string{"type": "cyclonedx"}

	if bom.Metadata != nil {
		for _, a := range derefAuthors(bom.Metadata) {
			doc.Authors = append(doc.Authors, a)
		}
		if bom.Metadata.Supplier != nil {
			doc.Suppliers = append(doc.Suppliers, bom.Metadata.Supplier.Name)
		}
		if bom.Metadata.Component != nil {
			doc.Nodes = append(doc.Nodes, componentToNode(*bom.Metadata.Component))
		}
	}

	if bom.Components != nil {
		for _, c := range *bom.Components {
			doc.Nodes = append(doc.Nodes, componentToNode(c))
		}
	}

	if bom.Dependencies != nil {
		for _, d := range *bom.Dependencies {
			if d.Dependencies == nil {
				continue
			}
			for _, ref := range *d.Dependencies {
				doc.Edges = append(doc.Edges, sbom.Edge{
					Left:         d.Ref,
					Right:        ref,
					Relationship: entity.RelationshipDependsOn,
				})
			}
		}
	}
	return doc, nil
}

func derefAuthors(m *cdx.Metadata) []string {
	if m.Authors == nil {
		return nil
	}
	out := make([]string, 0, len(*m.Authors))
	for _, a := range *m.Authors {
		out = append(out, a.Name)
	}
	return out
}

func componentToNode(c cdx.Component) sbom.Node {
	n := sbom.Node{
		ID:      c.BOMRef,
		Name:    c.Name,
		Group:   c.Group,
		Version: c.Version,
	}
	if c.Licenses != nil {
		for _, lc := range *c.Licenses {
			if lc.Expression != "" {
				expr := lc.Expression
				n.LicenseExpression = &expr
				break
			}
		}
	}
	if c.PackageURL != "" {
		if p, err := purl.Parse(c.PackageURL); err == nil {
			n.Purls = append(n.Purls, p)
		}
	}
	if c.CPE != "" {
		if w, err := cpe.UnbindFS(c.CPE); err == nil {
			n.Cpes = append(n.Cpes, w)
		}
	}
	return n
}
