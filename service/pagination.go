// Package service implements the cross-entity read paths: advisory and
// SBOM search/fetch, the transitive package walk, and organization lookup
// by CPE vendor key.
//
// Grounded on original_source/modules/fundamental/src/advisory/service/mod.rs
// and modules/fundamental/src/sbom/service/sbom.rs: the inner-select
// synthetic-aggregate pattern, deprecation-aware search, and the
// array-aggregate-of-purls-and-cpes row shape.
package service

// Paginated wraps a page of items with the total match count, mirroring
// the original's PaginatedResults<T>.
type Paginated[T any] struct {
	Items []T
	Total int
}

// Page bounds a query's offset/limit.
type Page struct {
	Offset uint
	Limit  uint
}

// DefaultPage matches the original's default first page.
var DefaultPage = Page{Offset: 0, Limit: 25}

// Deprecation controls whether a search includes deprecated advisories.
type Deprecation int

const (
	Ignore Deprecation = iota
	Consider
)
