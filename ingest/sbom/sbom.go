// Package sbom ingests normalized software bills of materials: a
// format-agnostic Document shape populated by the spdx and cyclonedx
// adapter packages, written to the store in one transaction, and a BFS
// walk of the resulting package-relationship graph.
//
// Grounded on spec.md §4.G and original_source's
// modules/ingestor/src/service/sbom (tests/sbom/spdx/corner_cases.rs for
// the broken-reference-aborts and cycle-tolerance behavior); writes follow
// the same creator-then-rows transaction shape as ingest/osv.
package sbom

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trustd-project/trustd/cpe"
	"github.com/trustd-project/trustd/creator"
	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/purl"
)

// Node is one package or file entry in the document's graph.
type Node struct {
	ID                string
	Name              string
	Group             string
	Version           string
	LicenseExpression *string
	Purls             []purl.Purl
	Cpes              []cpe.WFN
}

// Edge is one relationship between two node ids.
type Edge struct {
	Left         string
	Right        string
	Relationship entity.Relationship
}

// Document is the normalized shape both the spdx and cyclonedx adapters
// produce; the core ingester never imports a format-specific parser type.
type Document struct {
	Labels       map[string]string
	Authors      []string
	Suppliers    []string
	DataLicenses []string
	Nodes        []Node
	Edges        []Edge
}

// InvalidReferenceError reports a relationship edge naming a node id the
// document never defines.
type InvalidReferenceError struct {
	Ref string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid content: Invalid reference: %s", e.Ref)
}

// validate checks every edge references a node id the document actually
// defines. Cycles and self-references are left alone; only dangling
// references are rejected (corner_cases.rs).
func (d Document) validate() error {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	for _, e := range d.Edges {
		if _, ok := ids[e.Left]; !ok {
			return &InvalidReferenceError{Ref: e.Left}
		}
		if _, ok := ids[e.Right]; !ok {
			return &InvalidReferenceError{Ref: e.Right}
		}
	}
	return nil
}

const (
	insertSbom = `
		INSERT INTO sbom (id, document_id, labels, authors, suppliers, data_licenses)
		VALUES ($1, $2, $3, $4, $5, $6)`
	insertSbomNode = `
		INSERT INTO sbom_node (sbom_id, node_id, name)
		VALUES ($1, $2, $3)`
	insertSbomPackage = `
		INSERT INTO sbom_package (node_id, group_name, version, license_expression)
		VALUES ($1, $2, $3, $4)`
	insertSbomPackagePurlRef = `
		INSERT INTO sbom_package_purl_ref (node_id, purl_ref)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	insertSbomPackageCpeRef = `
		INSERT INTO sbom_package_cpe_ref (node_id, cpe_ref)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	insertPackageRelatesToPackage = `
		INSERT INTO package_relates_to_package (sbom_id, left_node_id, right_node_id, relationship)
		VALUES ($1, $2, $3, $4)`
)

// Load writes doc inside tx: one Sbom row, every node and its packages'
// PURL/CPE references, and every relationship edge. A broken reference
// anywhere in the document aborts the whole ingest before any row is
// written, per the corner-case contract; cycles and self-references write
// normally.
func Load(ctx context.Context, tx pgx.Tx, sbomID uuid.UUID, documentID uuid.UUID, doc Document) error {
	if err := doc.validate(); err != nil {
		return err
	}

	purls := creator.NewPurlCreator()
	cpes := creator.NewCpeCreator()
	for _, n := range doc.Nodes {
		for _, p := range n.Purls {
			purls.Add(p)
		}
		for _, w := range n.Cpes {
			cpes.Add(w)
		}
	}
	if err := purls.Create(ctx, tx); err != nil {
		return fmt.Errorf("sbom: flush purls: %w", err)
	}
	if err := cpes.Create(ctx, tx); err != nil {
		return fmt.Errorf("sbom: flush cpes: %w", err)
	}

	if _, err := tx.Exec(ctx, insertSbom, sbomID, documentID, doc.Labels, doc.Authors, doc.Suppliers, doc.DataLicenses); err != nil {
		return fmt.Errorf("sbom: insert sbom: %w", err)
	}

	for _, n := range doc.Nodes {
		if _, err := tx.Exec(ctx, insertSbomNode, sbomID, n.ID, n.Name); err != nil {
			return fmt.Errorf("sbom: insert sbom_node %s: %w", n.ID, err)
		}
		if n.Version != "" || n.Group != "" || n.LicenseExpression != nil {
			if _, err := tx.Exec(ctx, insertSbomPackage, n.ID, n.Group, n.Version, n.LicenseExpression); err != nil {
				return fmt.Errorf("sbom: insert sbom_package %s: %w", n.ID, err)
			}
		}
		for _, p := range n.Purls {
			ref := purls.QualifiedID(p)
			if _, err := tx.Exec(ctx, insertSbomPackagePurlRef, n.ID, ref); err != nil {
				return fmt.Errorf("sbom: insert sbom_package_purl_ref %s: %w", n.ID, err)
			}
		}
		for _, w := range n.Cpes {
			if _, err := tx.Exec(ctx, insertSbomPackageCpeRef, n.ID, w.UUID()); err != nil {
				return fmt.Errorf("sbom: insert sbom_package_cpe_ref %s: %w", n.ID, err)
			}
		}
	}

	for _, e := range doc.Edges {
		if _, err := tx.Exec(ctx, insertPackageRelatesToPackage, sbomID, e.Left, e.Right, e.Relationship); err != nil {
			return fmt.Errorf("sbom: insert package_relates_to_package: %w", err)
		}
	}
	return nil
}
