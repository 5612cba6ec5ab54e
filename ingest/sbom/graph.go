package sbom

import (
	"github.com/google/uuid"

	"github.com/trustd-project/trustd/entity"
)

// RelatedPackage is one row of a transitive package walk: the node it
// reached and the qualified PURL/CPE refs attached to it.
type RelatedPackage struct {
	NodeID   string
	PurlRefs []uuid.UUID
	CpeRefs  []uuid.UUID
}

// edgeIndex adapts a flat edge list into an adjacency lookup for Walk.
type edgeIndex map[string][]string

// buildIndex indexes edges by their Left node id, following the
// relationship in its forward (left -> right) direction.
func buildIndex(edges []Edge, rel entity.RelationshipFilter) edgeIndex {
	idx := make(edgeIndex)
	for _, e := range edges {
		if !rel.Matches(e.Relationship) {
			continue
		}
		idx[e.Left] = append(idx[e.Left], e.Right)
	}
	return idx
}

// Walk performs a breadth-first traversal of the SBOM package-relationship
// graph starting from root, bounded by a visited-node set so cycles
// terminate. It returns every reachable node id, including root itself.
//
// Grounded on fetch_related_packages and corner_cases.rs's cycle test: the
// graph may contain cycles and self-references, and the walk must still
// terminate and must not revisit a node.
func Walk(edges []Edge, root string, rel entity.RelationshipFilter) []string {
	idx := buildIndex(edges, rel)
	visited := map[string]struct{}{root: {}}
	queue := []string{root}
	order := []string{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range idx[n] {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			order = append(order, next)
			queue = append(queue, next)
		}
	}
	return order
}
