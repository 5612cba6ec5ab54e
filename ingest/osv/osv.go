// Package osv ingests OSV (Open Source Vulnerability) advisory documents:
// translating affected-range events into package status rows across
// multiple version schemes, and writing the result through one
// transaction.
//
// Grounded line-for-line on
// original_source/modules/ingestor/src/service/advisory/osv/loader.rs
// (OsvLoader::load, create_package_status_versions, match_versions,
// ingest_range_from/ingest_exact). Wire types come from
// github.com/ossf/osv-schema/bindings/go/osvschema, the same package
// google-osv-scalibr's enricher/vulnmatch/osvdev uses for OSV documents.
package osv

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ossf/osv-schema/bindings/go/osvschema"

	"github.com/trustd-project/trustd/creator"
	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/purl"
)

// Warning is a non-fatal issue recorded during ingest (e.g. an
// unparseable CVSS vector); ingest continues past these.
type Warning struct {
	Message string
}

// Result is the plan produced by Translate: every row Load should write,
// plus any warnings accumulated along the way.
type Result struct {
	Advisory        entity.Advisory
	Vulnerabilities []entity.Vulnerability
	AdvisoryVulns   []entity.AdvisoryVulnerability
	Cvss3s          []entity.Cvss3
	Statuses        []statusCandidate
	Warnings        []Warning
}

// statusCandidate pairs a PackageStatus with the Purl it's keyed on, since
// the PURL's qualified UUID isn't known until the PurlCreator assigns it.
type statusCandidate struct {
	AdvisoryVulnID uuid.UUID
	Purl           purl.Purl
	Status         entity.Status
	Scheme         entity.VersionScheme
	Spec           entity.VersionSpec
}

// wellKnownIssuerPrefixes maps a substring of an ADVISORY reference URL to
// the issuer that published it.
var wellKnownIssuerPrefixes = []struct {
	prefix string
	issuer string
}{
	{"github.com/advisories", "GitHub"},
	{"access.redhat.com", "Red Hat"},
	{"nvd.nist.gov", "NVD"},
	{"cve.mitre.org", "MITRE"},
	{"ubuntu.com/security", "Canonical"},
	{"suse.com/security", "SUSE"},
}

func detectIssuer(refs []osvschema.Reference) string {
	for _, r := range refs {
		if string(r.Type) != "ADVISORY" {
			continue
		}
		for _, p := range wellKnownIssuerPrefixes {
			if strings.Contains(r.URL, p.prefix) {
				return p.issuer
			}
		}
	}
	return ""
}

// Translate compiles an OSV vulnerability document into the rows Load
// should write. It is pure: no database access. documentID identifies the
// already-stored SourceDocument this vulnerability was read from; issuer,
// when empty, is detected from the document's own advisory references.
func Translate(osv osvschema.Vulnerability, issuer string, advisoryID uuid.UUID, documentID uuid.UUID) Result {
	if issuer == "" {
		issuer = detectIssuer(osv.References)
	}

	var result Result
	result.Advisory = entity.Advisory{
		ID:         advisoryID,
		Identifier: osv.ID,
		DocumentID: documentID,
		Issuer:     issuer,
		Title:      osv.Summary,
		Labels:     map[string]string{"type": "osv"},
	}
	if !osv.Published.IsZero() {
		t := osv.Published
		result.Advisory.Published = &t
	}
	if !osv.Modified.IsZero() {
		t := osv.Modified
		result.Advisory.Modified = &t
	}
	if osv.Withdrawn != nil {
		result.Advisory.Withdrawn = osv.Withdrawn
	}

	for _, alias := range osv.Aliases {
		if !strings.HasPrefix(alias, "CVE-") {
			continue
		}
		result.Vulnerabilities = append(result.Vulnerabilities, entity.Vulnerability{ID: alias})

		advisoryVulnID := entity.AdvisoryVulnerabilityID(advisoryID, alias)
		av := entity.AdvisoryVulnerability{
			ID:              advisoryVulnID,
			AdvisoryID:      advisoryID,
			VulnerabilityID: alias,
			Title:           osv.Summary,
			Summary:         osv.Summary,
			Description:     osv.Details,
		}
		result.AdvisoryVulns = append(result.AdvisoryVulns, av)

		for _, sev := range osv.Severity {
			if sev.Type != "CVSS_V3" {
				continue
			}
			c, err := entity.NewCvss3(advisoryVulnID, sev.Score)
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Message: fmt.Sprintf("unable to parse CVSS3 for %s: %v", alias, err)})
				continue
			}
			result.Cvss3s = append(result.Cvss3s, c)
		}

		for _, affected := range osv.Affected {
			result.Statuses = append(result.Statuses, translateAffected(advisoryVulnID, affected)...)
		}
	}
	return result
}

func translateAffected(advisoryVulnID uuid.UUID, affected osvschema.Affected) []statusCandidate {
	purls := candidatePurls(affected.Package)

	var out []statusCandidate
	for _, p := range purls {
		for _, v := range affected.Versions {
			out = append(out, statusCandidate{
				AdvisoryVulnID: advisoryVulnID,
				Purl:           p.WithVersion(v),
				Status:         entity.StatusAffected,
				Scheme:         entity.SchemeGeneric,
				Spec:           entity.NewExact(v),
			})
		}
		for _, r := range affected.Ranges {
			out = append(out, translateRange(advisoryVulnID, p, r, affected.Package.Ecosystem, affected.Versions)...)
		}
	}
	return out
}

// candidatePurls builds the PURL candidates for an OSV package: one
// derived from the ecosystem/name via a per-ecosystem translator, plus
// one parsed from the explicit purl field if present.
func candidatePurls(pkg osvschema.Package) []purl.Purl {
	var out []purl.Purl
	if t := ecosystemPurlType(pkg.Ecosystem); t != "" {
		if p, err := purl.Parse(fmt.Sprintf("pkg:%s/%s", t, pkg.Name)); err == nil {
			out = append(out, p)
		}
	}
	if pkg.Purl != "" {
		if p, err := purl.Parse(pkg.Purl); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func ecosystemPurlType(eco osvschema.Ecosystem) string {
	switch strings.ToLower(strings.SplitN(string(eco), ":", 2)[0]) {
	case "go":
		return "golang"
	case "npm":
		return "npm"
	case "pypi":
		return "pypi"
	case "maven":
		return "maven"
	case "packagist":
		return "composer"
	case "nuget":
		return "nuget"
	case "rubygems":
		return "gem"
	case "hex":
		return "hex"
	case "pub":
		return "pub"
	default:
		return ""
	}
}

// schemeForRange implements the range.type/ecosystem dispatch table.
func schemeForRange(rangeType osvschema.RangeType, eco osvschema.Ecosystem) (entity.VersionScheme, bool) {
	switch rangeType {
	case "SEMVER":
		return entity.SchemeSemver, true
	case "GIT":
		return entity.SchemeGit, true
	case "ECOSYSTEM":
		switch strings.ToLower(strings.SplitN(string(eco), ":", 2)[0]) {
		case "maven":
			return entity.SchemeMaven, true
		case "pypi", "python":
			return entity.SchemePython, true
		case "go":
			return entity.SchemeGolang, true
		case "npm":
			return entity.SchemeNpm, true
		case "packagist":
			return entity.SchemePackagist, true
		case "nuget":
			return entity.SchemeNuGet, true
		case "rubygems":
			return entity.SchemeGem, true
		case "hex":
			return entity.SchemeHex, true
		case "swifturl":
			return entity.SchemeSwift, true
		case "pub":
			return entity.SchemePub, true
		}
	}
	return "", false
}

func translateRange(advisoryVulnID uuid.UUID, p purl.Purl, r osvschema.Range, eco osvschema.Ecosystem, versions []string) []statusCandidate {
	if scheme, ok := schemeForRange(r.Type, eco); ok {
		return rangeToSpec(advisoryVulnID, p, scheme, r.Events)
	}
	return enumeratedFallback(advisoryVulnID, p, r.Events, versions)
}

// rangeToSpec extracts one start=Introduced and one end=(Fixed|LastAffected)
// from the event list and emits the Range-to-VersionSpec translation table
// from spec §4.F.
func rangeToSpec(advisoryVulnID uuid.UUID, p purl.Purl, scheme entity.VersionScheme, events []osvschema.Event) []statusCandidate {
	var start string
	var end string
	var endIsLastAffected bool
	haveStart, haveEnd := false, false

	for _, e := range events {
		if !haveStart && e.Introduced != "" {
			start, haveStart = e.Introduced, true
		}
	}
	for _, e := range events {
		if haveEnd {
			break
		}
		switch {
		case e.Fixed != "":
			end, endIsLastAffected, haveEnd = e.Fixed, false, true
		case e.LastAffected != "":
			end, endIsLastAffected, haveEnd = e.LastAffected, true, true
		}
	}

	var out []statusCandidate
	switch {
	case haveStart && !haveEnd:
		out = append(out, rangeStatus(advisoryVulnID, p, scheme,
			entity.Bound{Kind: entity.Inclusive, Value: start}, entity.Bound{Kind: entity.Unbounded}))
	case !haveStart && haveEnd && !endIsLastAffected:
		out = append(out, rangeStatus(advisoryVulnID, p, scheme,
			entity.Bound{Kind: entity.Unbounded}, entity.Bound{Kind: entity.Exclusive, Value: end}))
	case !haveStart && haveEnd && endIsLastAffected:
		out = append(out, rangeStatus(advisoryVulnID, p, scheme,
			entity.Bound{Kind: entity.Unbounded}, entity.Bound{Kind: entity.Inclusive, Value: end}))
	case haveStart && haveEnd && !endIsLastAffected:
		out = append(out, rangeStatus(advisoryVulnID, p, scheme,
			entity.Bound{Kind: entity.Inclusive, Value: start}, entity.Bound{Kind: entity.Exclusive, Value: end}))
		out = append(out, statusCandidate{
			AdvisoryVulnID: advisoryVulnID,
			Purl:           p.WithVersion(end),
			Status:         entity.StatusFixed,
			Scheme:         scheme,
			Spec:           entity.NewExact(end),
		})
	case haveStart && haveEnd && endIsLastAffected:
		out = append(out, rangeStatus(advisoryVulnID, p, scheme,
			entity.Bound{Kind: entity.Inclusive, Value: start}, entity.Bound{Kind: entity.Inclusive, Value: end}))
	}
	return out
}

func rangeStatus(advisoryVulnID uuid.UUID, p purl.Purl, scheme entity.VersionScheme, low, high entity.Bound) statusCandidate {
	return statusCandidate{
		AdvisoryVulnID: advisoryVulnID,
		Purl:           p,
		Status:         entity.StatusAffected,
		Scheme:         scheme,
		Spec:           entity.NewRange(low, high),
	}
}

// enumeratedFallback walks the OSV-provided sorted version list for range
// types without a defined scheme: scan for Introduced(start), collect
// versions up to (exclusive of) the next Fixed/LastAffected, emit each as
// Exact affected, and on Fixed additionally emit Exact fixed.
func enumeratedFallback(advisoryVulnID uuid.UUID, p purl.Purl, events []osvschema.Event, versions []string) []statusCandidate {
	var out []statusCandidate
	var start string
	for _, e := range events {
		switch {
		case e.Introduced != "":
			start = e.Introduced
		case e.Fixed != "":
			for _, v := range matchVersions(versions, start, e.Fixed) {
				out = append(out, exactStatus(advisoryVulnID, p, entity.SchemeGeneric, v, entity.StatusAffected))
			}
			out = append(out, exactStatus(advisoryVulnID, p, entity.SchemeGeneric, e.Fixed, entity.StatusFixed))
			start = ""
		case e.LastAffected != "":
			for _, v := range matchVersions(versions, start, e.LastAffected) {
				out = append(out, exactStatus(advisoryVulnID, p, entity.SchemeGeneric, v, entity.StatusAffected))
			}
			out = append(out, exactStatus(advisoryVulnID, p, entity.SchemeGeneric, e.LastAffected, entity.StatusAffected))
			start = ""
		}
	}
	if start != "" {
		for _, v := range matchVersions(versions, start, "") {
			out = append(out, exactStatus(advisoryVulnID, p, entity.SchemeGeneric, v, entity.StatusAffected))
		}
	}
	return out
}

func exactStatus(advisoryVulnID uuid.UUID, p purl.Purl, scheme entity.VersionScheme, version string, status entity.Status) statusCandidate {
	return statusCandidate{
		AdvisoryVulnID: advisoryVulnID,
		Purl:           p.WithVersion(version),
		Status:         status,
		Scheme:         scheme,
		Spec:           entity.NewExact(version),
	}
}

// matchVersions scans the sorted version list for start, then collects
// every subsequent version up to (exclusive of) end. end == "" means
// collect through the end of the list.
func matchVersions(versions []string, start, end string) []string {
	var matches []string
	collecting := false
	for _, v := range versions {
		switch {
		case !collecting && v == start:
			collecting = true
			matches = append(matches, v)
		case collecting && end != "" && v == end:
			return matches
		case collecting:
			matches = append(matches, v)
		}
	}
	return matches
}

const (
	insertAdvisory = `
		INSERT INTO advisory (id, identifier, document_id, issuer, published, modified, withdrawn, title, labels, deprecated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)`
	insertVulnerability = `
		INSERT INTO vulnerability (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING`
	insertAdvisoryVuln = `
		INSERT INTO advisory_vulnerability (id, advisory_id, vulnerability_id, title, summary, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	insertCvss3 = `
		INSERT INTO cvss3 (advisory_vuln_id, vector, score, severity)
		VALUES ($1, $2, $3, $4)`
	insertPackageStatus = `
		INSERT INTO package_status (advisory_vuln_id, purl_ref, status, version_scheme, version_spec)
		VALUES ($1, $2, $3, $4, $5)`
	updateDeprecatedAdvisory = `
		UPDATE advisory SET deprecated = true WHERE identifier = $1 AND id <> $2`
)

// Load writes a translated Result inside tx: the advisory, vulnerability
// links, CVSS scores, and package statuses, flushing the PURL creator
// before any package_status row references a qualified_purl. The whole
// ingest is one transaction; any failure rolls it back atomically.
func Load(ctx context.Context, tx pgx.Tx, r Result) error {
	purls := creator.NewPurlCreator()
	for _, s := range r.Statuses {
		purls.Add(s.Purl)
	}
	if err := purls.Create(ctx, tx); err != nil {
		return fmt.Errorf("osv: flush purls: %w", err)
	}

	if _, err := tx.Exec(ctx, insertAdvisory,
		r.Advisory.ID, r.Advisory.Identifier, r.Advisory.DocumentID, r.Advisory.Issuer,
		r.Advisory.Published, r.Advisory.Modified, r.Advisory.Withdrawn, r.Advisory.Title, r.Advisory.Labels); err != nil {
		return fmt.Errorf("osv: insert advisory: %w", err)
	}
	if _, err := tx.Exec(ctx, updateDeprecatedAdvisory, r.Advisory.Identifier, r.Advisory.ID); err != nil {
		return fmt.Errorf("osv: deprecate prior advisories: %w", err)
	}

	for _, v := range r.Vulnerabilities {
		if _, err := tx.Exec(ctx, insertVulnerability, v.ID); err != nil {
			return fmt.Errorf("osv: insert vulnerability %s: %w", v.ID, err)
		}
	}
	for _, av := range r.AdvisoryVulns {
		if _, err := tx.Exec(ctx, insertAdvisoryVuln, av.ID, av.AdvisoryID, av.VulnerabilityID, av.Title, av.Summary, av.Description); err != nil {
			return fmt.Errorf("osv: insert advisory_vulnerability: %w", err)
		}
	}
	for _, c := range r.Cvss3s {
		if _, err := tx.Exec(ctx, insertCvss3, c.AdvisoryVulnID, c.Vector, c.Score, c.Severity); err != nil {
			return fmt.Errorf("osv: insert cvss3: %w", err)
		}
	}
	for _, s := range r.Statuses {
		_, _, purlRef := s.Purl.UUIDs()
		if _, err := tx.Exec(ctx, insertPackageStatus, s.AdvisoryVulnID, purlRef, s.Status, s.Scheme, specLiteral(s.Spec)); err != nil {
			return fmt.Errorf("osv: insert package_status: %w", err)
		}
	}
	return nil
}

// specLiteral renders a VersionSpec into the text form stored in
// version_spec. Nothing in this module parses the literal back.
func specLiteral(spec entity.VersionSpec) string {
	if !spec.IsRange {
		return "=" + spec.Exact
	}
	return boundLiteral(spec.RangeLow, true) + "," + boundLiteral(spec.RangeHigh, false)
}

func boundLiteral(b entity.Bound, low bool) string {
	switch b.Kind {
	case entity.Unbounded:
		if low {
			return "(-inf"
		}
		return "+inf)"
	case entity.Inclusive:
		if low {
			return "[" + b.Value
		}
		return b.Value + "]"
	default: // Exclusive
		if low {
			return "(" + b.Value
		}
		return b.Value + ")"
	}
}
