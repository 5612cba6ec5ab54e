// Package entity holds the persistent record shapes that the rest of the
// store reads and writes: advisories, vulnerabilities, CVSS scores, package
// status rows, SBOMs and their graph, source documents, and organizations.
//
// Field tags follow claircore's datastore/postgres struct-tag convention
// (`db:"..."`) so a thin scan/bind layer can drive them directly off
// pgx.Rows without a full ORM.
package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/trustd-project/trustd/cvss3"
	"github.com/trustd-project/trustd/digest"
)

// Advisory is a single ingested advisory document.
type Advisory struct {
	ID         uuid.UUID         `db:"id"`
	Identifier string            `db:"identifier"`
	DocumentID uuid.UUID         `db:"document_id"`
	Issuer     string            `db:"issuer"`
	Published  *time.Time        `db:"published"`
	Modified   *time.Time        `db:"modified"`
	Withdrawn  *time.Time        `db:"withdrawn"`
	Title      string            `db:"title"`
	Labels     map[string]string `db:"labels"`
	Deprecated bool              `db:"deprecated"`
}

// Vulnerability is shared identity across advisories (e.g. a CVE number).
type Vulnerability struct {
	ID string `db:"id"`
}

// AdvisoryVulnerability links one Advisory to one Vulnerability with the
// advisory's specific narrative for that vulnerability. ID is derived
// deterministically from (AdvisoryID, VulnerabilityID) so Cvss3 and
// PackageStatus rows can reference it by surrogate key before the row
// itself is committed.
type AdvisoryVulnerability struct {
	ID              uuid.UUID  `db:"id"`
	AdvisoryID      uuid.UUID  `db:"advisory_id"`
	VulnerabilityID string     `db:"vulnerability_id"`
	Title           string     `db:"title"`
	Summary         string     `db:"summary"`
	Description     string     `db:"description"`
	CWEs            []string   `db:"cwes"`
	ReservedDate    *time.Time `db:"reserved_date"`
	DiscoveryDate   *time.Time `db:"discovery_date"`
	ReleaseDate     *time.Time `db:"release_date"`
}

// Severity is the CVSSv3.1 qualitative rating, stored as a database enum.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Cvss3 is one parsed CVSS v3 score attached to an AdvisoryVulnerability.
type Cvss3 struct {
	AdvisoryVulnID uuid.UUID `db:"advisory_vuln_id"`
	Vector         string    `db:"vector"`
	Score          float64   `db:"score"`
	Severity       Severity  `db:"severity"`
}

// AdvisoryVulnerabilityID derives the deterministic surrogate key for an
// (advisoryID, vulnerabilityID) pair.
func AdvisoryVulnerabilityID(advisoryID uuid.UUID, vulnerabilityID string) uuid.UUID {
	return uuid.NewSHA1(advisoryID, []byte(vulnerabilityID))
}

// NewCvss3 parses vector and derives Score/Severity from it.
func NewCvss3(advisoryVulnID uuid.UUID, vector string) (Cvss3, error) {
	v, err := cvss3.Parse(vector)
	if err != nil {
		return Cvss3{}, err
	}
	score := v.Score()
	return Cvss3{
		AdvisoryVulnID: advisoryVulnID,
		Vector:         vector,
		Score:          score,
		Severity:       Severity(cvss3.Severity(score)),
	}, nil
}

// Status is the affectedness of a package version under a vulnerability.
type Status string

const (
	StatusAffected         Status = "affected"
	StatusFixed            Status = "fixed"
	StatusNotAffected      Status = "not_affected"
	StatusKnownNotAffected Status = "known_not_affected"
)

// VersionScheme names the comparison scheme a VersionSpec must be
// interpreted under.
type VersionScheme string

const (
	SchemeSemver    VersionScheme = "semver"
	SchemeGit       VersionScheme = "git"
	SchemeMaven     VersionScheme = "maven"
	SchemePython    VersionScheme = "python"
	SchemeGolang    VersionScheme = "golang"
	SchemeNpm       VersionScheme = "npm"
	SchemePackagist VersionScheme = "packagist"
	SchemeNuGet     VersionScheme = "nuget"
	SchemeGem       VersionScheme = "gem"
	SchemeHex       VersionScheme = "hex"
	SchemeSwift     VersionScheme = "swift"
	SchemePub       VersionScheme = "pub"
	SchemeGeneric   VersionScheme = "generic"
)

// Bound is one endpoint of a Range VersionSpec.
type Bound struct {
	Kind  BoundKind
	Value string // empty when Kind == Unbounded
}

// BoundKind distinguishes an unbounded, inclusive, or exclusive Bound.
type BoundKind int

const (
	Unbounded BoundKind = iota
	Inclusive
	Exclusive
)

// VersionSpec is either an exact version or a (low, high) range.
type VersionSpec struct {
	Exact      string // non-empty for an exact spec
	RangeLow   Bound
	RangeHigh  Bound
	IsRange    bool
}

// NewExact constructs an exact VersionSpec.
func NewExact(v string) VersionSpec { return VersionSpec{Exact: v} }

// NewRange constructs a range VersionSpec.
func NewRange(low, high Bound) VersionSpec {
	return VersionSpec{RangeLow: low, RangeHigh: high, IsRange: true}
}

// PackageStatus records affectedness of one qualified PURL under one
// AdvisoryVulnerability.
type PackageStatus struct {
	AdvisoryVulnID uuid.UUID     `db:"advisory_vuln_id"`
	PurlRef        uuid.UUID     `db:"purl_ref"`
	Status         Status        `db:"status"`
	VersionScheme  VersionScheme `db:"version_scheme"`
	VersionSpec    VersionSpec   `db:"version_spec"`
}

// Sbom is one ingested software bill of materials.
type Sbom struct {
	ID             uuid.UUID         `db:"id"`
	DocumentID     *uuid.UUID        `db:"document_id"`
	Labels         map[string]string `db:"labels"`
	Authors        []string          `db:"authors"`
	Suppliers      []string          `db:"suppliers"`
	DataLicenses   []string          `db:"data_licenses"`
	Published      *time.Time        `db:"published"`
}

// SbomNode is one node in the SBOM package-relationship graph.
type SbomNode struct {
	SbomID uuid.UUID `db:"sbom_id"`
	NodeID string    `db:"node_id"`
	Name   string    `db:"name"`
}

// SbomPackage is the package-specific detail for a SbomNode.
type SbomPackage struct {
	NodeID            string      `db:"node_id"`
	Group             string      `db:"group_name"`
	Version           string      `db:"version"`
	LicenseExpression *string     `db:"license_expression"`
	PurlRefs          []uuid.UUID `db:"purl_refs"`
	CpeRefs           []uuid.UUID `db:"cpe_refs"`
}

// Relationship enumerates the PackageRelatesToPackage edge kinds.
type Relationship string

const (
	RelationshipDescribes             Relationship = "describes"
	RelationshipContains              Relationship = "contains"
	RelationshipDependsOn             Relationship = "depends_on"
	RelationshipDevDependencyOf       Relationship = "dev_dependency_of"
	RelationshipOptionalDependencyOf  Relationship = "optional_dependency_of"
	RelationshipProvidedDependencyOf  Relationship = "provided_dependency_of"
	RelationshipTestDependencyOf      Relationship = "test_dependency_of"
	RelationshipRuntimeDependencyOf   Relationship = "runtime_dependency_of"
	RelationshipExample               Relationship = "example"
	RelationshipGenerates             Relationship = "generates"
	RelationshipAncestor              Relationship = "ancestor"
	RelationshipVariant               Relationship = "variant"
	RelationshipBuildToolOf           Relationship = "build_tool_of"
	RelationshipDevToolOf             Relationship = "dev_tool_of"
)

// RelationshipFilter optionally narrows a graph walk or query to one
// Relationship kind. AnyRelationship matches every kind; the zero value
// matches only the empty Relationship.
type RelationshipFilter struct {
	Relationship Relationship
	Any          bool
}

// AnyRelationship matches every Relationship kind.
func AnyRelationship() RelationshipFilter { return RelationshipFilter{Any: true} }

// OnlyRelationship matches exactly one Relationship kind.
func OnlyRelationship(r Relationship) RelationshipFilter { return RelationshipFilter{Relationship: r} }

// Matches reports whether r satisfies the filter.
func (f RelationshipFilter) Matches(r Relationship) bool {
	return f.Any || f.Relationship == r
}

// PackageRelatesToPackage is one directed edge in the SBOM graph.
type PackageRelatesToPackage struct {
	SbomID       uuid.UUID    `db:"sbom_id"`
	LeftNodeID   string       `db:"left_node_id"`
	RightNodeID  string       `db:"right_node_id"`
	Relationship Relationship `db:"relationship"`
}

// SourceDocument records the raw bytes backing an Advisory or Sbom, keyed
// by its multi-algorithm digest.
type SourceDocument struct {
	ID         uuid.UUID       `db:"id"`
	StorageKey string          `db:"storage_key"`
	IngestedAt time.Time       `db:"ingested_at"`
	Size       int64           `db:"size"`
	Digests    digest.Digests  `db:"-"`
	SHA256     string          `db:"sha256"`
	SHA384     string          `db:"sha384"`
	SHA512     string          `db:"sha512"`
}

// Organization is a vendor/publisher identity, optionally keyed by a CPE
// "vendor" component for cross-referencing.
type Organization struct {
	ID      uuid.UUID `db:"id"`
	Name    string    `db:"name"`
	CPEKey  string    `db:"cpe_key"`
	Website string    `db:"website"`
}

// License is a curated SPDX license expression or custom license text,
// keyed by the hash of its canonical representation.
type License struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
	Text string    `db:"text"`
}
