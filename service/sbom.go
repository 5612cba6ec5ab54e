package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/ingest/sbom"
	"github.com/trustd-project/trustd/trustderr"
)

// SbomService implements the SBOM read paths: package listing, described
// packages, and the transitive related-package walk.
type SbomService struct {
	pool *pgxpool.Pool
}

// NewSbomService constructs a SbomService over pool.
func NewSbomService(pool *pgxpool.Pool) *SbomService {
	return &SbomService{pool: pool}
}

// Which selects the traversal direction for FetchRelatedPackages.
type Which int

const (
	Left Which = iota
	Right
)

// Reference narrows FetchRelatedPackages/CountRelatedSboms to either every
// node (All) or one named package node (Package).
type Reference struct {
	All    bool
	NodeID string
}

// AllPackages matches every node in the SBOM.
func AllPackages() Reference { return Reference{All: true} }

// OnePackage narrows to a single node id.
func OnePackage(nodeID string) Reference { return Reference{NodeID: nodeID} }

// orient swaps an edge's endpoints when walking "which ∈ {Left, Right}" in
// the Left direction, so Walk always advances Left -> Right regardless of
// the caller's chosen traversal direction.
func orient(e sbom.Edge, which Which) sbom.Edge {
	if which == Left {
		e.Left, e.Right = e.Right, e.Left
	}
	return e
}

// QualifiedPackage is one node's full identifier set: every PURL and CPE
// attached to it, aggregated per spec's array-aggregate-of-refs row shape.
type QualifiedPackage struct {
	NodeID string
	Name   string
	Purls  []string
	Cpes   []string
}

const fetchSbomPackagesSQL = `
	SELECT n.node_id, n.name,
	       COALESCE(ARRAY_AGG(DISTINCT qp.id::text) FILTER (WHERE qp.id IS NOT NULL), '{}'),
	       COALESCE(ARRAY_AGG(DISTINCT c.wfn) FILTER (WHERE c.wfn IS NOT NULL), '{}')
	FROM sbom_node n
	LEFT JOIN sbom_package_purl_ref ppr ON ppr.node_id = n.node_id
	LEFT JOIN qualified_purl qp ON qp.id = ppr.purl_ref
	LEFT JOIN sbom_package_cpe_ref pcr ON pcr.node_id = n.node_id
	LEFT JOIN cpe c ON c.id = pcr.cpe_ref
	WHERE n.sbom_id = $1
	GROUP BY n.node_id, n.name`

// FetchSbomPackages lists every package node in sbomID with its aggregated
// PURL/CPE identifier set.
func (s *SbomService) FetchSbomPackages(ctx context.Context, sbomID uuid.UUID) ([]QualifiedPackage, error) {
	rows, err := s.pool.Query(ctx, fetchSbomPackagesSQL, sbomID)
	if err != nil {
		return nil, trustderr.Wrap(trustderr.Internal, "FetchSbomPackages", "query failed", err)
	}
	defer rows.Close()

	var out []QualifiedPackage
	for rows.Next() {
		var qp QualifiedPackage
		if err := rows.Scan(&qp.NodeID, &qp.Name, &qp.Purls, &qp.Cpes); err != nil {
			return nil, trustderr.Wrap(trustderr.Internal, "FetchSbomPackages", "scan row", err)
		}
		out = append(out, qp)
	}
	return out, rows.Err()
}

const describesPackagesSQL = `
	SELECT n.node_id, n.name,
	       COALESCE(ARRAY_AGG(DISTINCT qp.id::text) FILTER (WHERE qp.id IS NOT NULL), '{}'),
	       COALESCE(ARRAY_AGG(DISTINCT c.wfn) FILTER (WHERE c.wfn IS NOT NULL), '{}')
	FROM package_relates_to_package r
	JOIN sbom_node n ON n.node_id = r.right_node_id AND n.sbom_id = r.sbom_id
	LEFT JOIN sbom_package_purl_ref ppr ON ppr.node_id = n.node_id
	LEFT JOIN qualified_purl qp ON qp.id = ppr.purl_ref
	LEFT JOIN sbom_package_cpe_ref pcr ON pcr.node_id = n.node_id
	LEFT JOIN cpe c ON c.id = pcr.cpe_ref
	WHERE r.sbom_id = $1 AND r.relationship = 'describes'
	GROUP BY n.node_id, n.name`

// DescribesPackages returns the packages an SBOM's "describes" edges point
// at — the top-level subject(s) of the document.
func (s *SbomService) DescribesPackages(ctx context.Context, sbomID uuid.UUID) ([]QualifiedPackage, error) {
	rows, err := s.pool.Query(ctx, describesPackagesSQL, sbomID)
	if err != nil {
		return nil, trustderr.Wrap(trustderr.Internal, "DescribesPackages", "query failed", err)
	}
	defer rows.Close()

	var out []QualifiedPackage
	for rows.Next() {
		var qp QualifiedPackage
		if err := rows.Scan(&qp.NodeID, &qp.Name, &qp.Purls, &qp.Cpes); err != nil {
			return nil, trustderr.Wrap(trustderr.Internal, "DescribesPackages", "scan row", err)
		}
		out = append(out, qp)
	}
	return out, rows.Err()
}

const edgesForSbomSQL = `
	SELECT left_node_id, right_node_id, relationship FROM package_relates_to_package WHERE sbom_id = $1`

// FetchRelatedPackages performs a BFS from ref across sbomID's
// package_relates_to_package edges (direction chosen by which, optionally
// narrowed to one relationship kind), returning the reachable node ids.
// Reference.All walks from every node a "describes" edge names.
func (s *SbomService) FetchRelatedPackages(ctx context.Context, sbomID uuid.UUID, which Which, ref Reference, rel *entity.Relationship) ([]string, error) {
	rows, err := s.pool.Query(ctx, edgesForSbomSQL, sbomID)
	if err != nil {
		return nil, trustderr.Wrap(trustderr.Internal, "FetchRelatedPackages", "query failed", err)
	}
	defer rows.Close()

	var edges []sbom.Edge
	for rows.Next() {
		var e sbom.Edge
		if err := rows.Scan(&e.Left, &e.Right, &e.Relationship); err != nil {
			return nil, trustderr.Wrap(trustderr.Internal, "FetchRelatedPackages", "scan edge", err)
		}
		edges = append(edges, orient(e, which))
	}
	if err := rows.Err(); err != nil {
		return nil, trustderr.Wrap(trustderr.Internal, "FetchRelatedPackages", "iterate edges", err)
	}

	filter := entity.AnyRelationship()
	if rel != nil {
		filter = entity.OnlyRelationship(*rel)
	}

	if ref.All {
		roots, err := s.DescribesPackages(ctx, sbomID)
		if err != nil {
			return nil, err
		}
		seen := map[string]struct{}{}
		var out []string
		for _, r := range roots {
			for _, n := range sbom.Walk(edges, r.NodeID, filter) {
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
		return out, nil
	}
	return sbom.Walk(edges, ref.NodeID, filter), nil
}

const countRelatedSbomsSQL = `
	SELECT COUNT(DISTINCT sbom_id) FROM sbom_package_purl_ref
	WHERE purl_ref = ANY($1)`

// CountRelatedSboms counts the distinct SBOMs referencing any of refs
// (qualified_purl UUIDs).
func (s *SbomService) CountRelatedSboms(ctx context.Context, refs []uuid.UUID) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, countRelatedSbomsSQL, refs).Scan(&n); err != nil {
		return 0, trustderr.Wrap(trustderr.Internal, "CountRelatedSboms", "query failed", err)
	}
	return n, nil
}

const findRelatedSbomsSQL = `
	SELECT DISTINCT sbom_id FROM sbom_package_purl_ref WHERE purl_ref = $1`

// FindRelatedSboms lists every SBOM id referencing ref.
func (s *SbomService) FindRelatedSboms(ctx context.Context, ref uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, findRelatedSbomsSQL, ref)
	if err != nil {
		return nil, trustderr.Wrap(trustderr.Internal, "FindRelatedSboms", "query failed", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, trustderr.Wrap(trustderr.Internal, "FindRelatedSboms", "scan row", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
