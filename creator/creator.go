// Package creator implements the collect-then-flush batch upsert pattern
// used to populate the dedup-keyed identity tables (PURLs, CPEs, licenses,
// organizations) before any row referencing them is written in the same
// transaction.
//
// Grounded on claircore's datastore/postgres batch-insert idiom
// (IndexPackages in indexpackage.go: queue every row into a pgx.Batch, then
// tx.SendBatch in one round trip, ON CONFLICT DO NOTHING keyed by identity)
// and on the two-phase PurlCreator.add()/.create(tx) calls visible in
// original_source's osv/loader.rs and sbom/clearly_defined.rs.
package creator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trustd-project/trustd/cpe"
	"github.com/trustd-project/trustd/purl"
)

// PurlCreator collects PURLs observed during an ingest and, on Create,
// upserts every distinct base/versioned/qualified row in one transaction.
//
// After Create returns successfully, every UUID recorded by Add is
// guaranteed present in base_purl/versioned_purl/qualified_purl, so callers
// may immediately insert rows that foreign-key into qualified_purl.
type PurlCreator struct {
	base      map[uuid.UUID]purl.Purl
	versioned map[uuid.UUID]purl.Purl
	qualified map[uuid.UUID]purl.Purl
}

// NewPurlCreator returns an empty PurlCreator.
func NewPurlCreator() *PurlCreator {
	return &PurlCreator{
		base:      map[uuid.UUID]purl.Purl{},
		versioned: map[uuid.UUID]purl.Purl{},
		qualified: map[uuid.UUID]purl.Purl{},
	}
}

// Add records all three UUID levels of p.
func (c *PurlCreator) Add(p purl.Purl) {
	pkgID, verID, qualID := p.UUIDs()
	c.base[pkgID] = p.ToBase()
	c.versioned[verID] = p.ToVersion()
	c.qualified[qualID] = p
}

// QualifiedID returns the qualified_purl UUID for p, identical to calling
// p.UUIDs() and taking the third value; provided for call-site clarity.
func (c *PurlCreator) QualifiedID(p purl.Purl) uuid.UUID {
	_, _, q := p.UUIDs()
	return q
}

const (
	insertBasePurl = `
		INSERT INTO base_purl (id, type, namespace, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`
	insertVersionedPurl = `
		INSERT INTO versioned_purl (id, base_purl_id, version)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	insertQualifiedPurl = `
		INSERT INTO qualified_purl (id, versioned_purl_id, qualifiers)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
)

// Create flushes every collected PURL to the database, inserting
// base_purl, then versioned_purl, then qualified_purl rows in that
// foreign-key-respecting order within tx.
func (c *PurlCreator) Create(ctx context.Context, tx pgx.Tx) error {
	var batch pgx.Batch
	for id, p := range c.base {
		batch.Queue(insertBasePurl, id, p.Type, p.Namespace, p.Name)
	}
	for id, p := range c.versioned {
		pkgID, _, _ := p.UUIDs()
		batch.Queue(insertVersionedPurl, id, pkgID, p.Version)
	}
	for id, p := range c.qualified {
		_, verID, _ := p.UUIDs()
		batch.Queue(insertQualifiedPurl, id, verID, p.Qualifiers)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, &batch).Close(); err != nil {
		return fmt.Errorf("creator: flush purls: %w", err)
	}
	return nil
}

// CpeCreator collects CPE WFNs and upserts them keyed by their stable UUID.
type CpeCreator struct {
	seen map[uuid.UUID]cpe.WFN
}

// NewCpeCreator returns an empty CpeCreator.
func NewCpeCreator() *CpeCreator {
	return &CpeCreator{seen: map[uuid.UUID]cpe.WFN{}}
}

// Add records w.
func (c *CpeCreator) Add(w cpe.WFN) uuid.UUID {
	id := w.UUID()
	c.seen[id] = w
	return id
}

const insertCpe = `
	INSERT INTO cpe (id, wfn)
	VALUES ($1, $2)
	ON CONFLICT (id) DO NOTHING`

// Create flushes every collected CPE to the database.
func (c *CpeCreator) Create(ctx context.Context, tx pgx.Tx) error {
	var batch pgx.Batch
	for id, w := range c.seen {
		batch.Queue(insertCpe, id, w.BindFS())
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, &batch).Close(); err != nil {
		return fmt.Errorf("creator: flush cpes: %w", err)
	}
	return nil
}

// LicenseCreator collects license names/texts and upserts them keyed by the
// UUIDv5 hash of their canonical text.
type LicenseCreator struct {
	seen map[uuid.UUID]licenseEntry
}

type licenseEntry struct {
	name string
	text string
}

// NewLicenseCreator returns an empty LicenseCreator.
func NewLicenseCreator() *LicenseCreator {
	return &LicenseCreator{seen: map[uuid.UUID]licenseEntry{}}
}

var licenseNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Add records a license by its canonical (name, text) pair and returns its
// stable identity UUID.
func (c *LicenseCreator) Add(name, text string) uuid.UUID {
	id := uuid.NewSHA1(licenseNamespace, []byte(name+"\x00"+text))
	c.seen[id] = licenseEntry{name: name, text: text}
	return id
}

const insertLicense = `
	INSERT INTO license (id, name, text)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO NOTHING`

// Create flushes every collected license to the database.
func (c *LicenseCreator) Create(ctx context.Context, tx pgx.Tx) error {
	var batch pgx.Batch
	for id, e := range c.seen {
		batch.Queue(insertLicense, id, e.name, e.text)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, &batch).Close(); err != nil {
		return fmt.Errorf("creator: flush licenses: %w", err)
	}
	return nil
}

// OrganizationCreator collects organizations and upserts them keyed by the
// UUIDv5 hash of their name.
type OrganizationCreator struct {
	seen map[uuid.UUID]orgEntry
}

type orgEntry struct {
	name    string
	cpeKey  string
	website string
}

// NewOrganizationCreator returns an empty OrganizationCreator.
func NewOrganizationCreator() *OrganizationCreator {
	return &OrganizationCreator{seen: map[uuid.UUID]orgEntry{}}
}

var orgNamespace = uuid.MustParse("7b1e7a1e-6b2e-4a8e-9e2e-3e7a1e6b2e4a")

// Add records an organization by name, returning its stable identity UUID.
func (c *OrganizationCreator) Add(name, cpeKey, website string) uuid.UUID {
	id := uuid.NewSHA1(orgNamespace, []byte(name))
	c.seen[id] = orgEntry{name: name, cpeKey: cpeKey, website: website}
	return id
}

const insertOrganization = `
	INSERT INTO organization (id, name, cpe_key, website)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING`

// Create flushes every collected organization to the database.
func (c *OrganizationCreator) Create(ctx context.Context, tx pgx.Tx) error {
	var batch pgx.Batch
	for id, e := range c.seen {
		batch.Queue(insertOrganization, id, e.name, e.cpeKey, e.website)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, &batch).Close(); err != nil {
		return fmt.Errorf("creator: flush organizations: %w", err)
	}
	return nil
}
