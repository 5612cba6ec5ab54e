package entity

import "github.com/google/uuid"

// BasePurl is the (type, namespace, name) identity level of the PURL
// hierarchy.
type BasePurl struct {
	ID        uuid.UUID `db:"id"`
	Type      string    `db:"type"`
	Namespace string    `db:"namespace"`
	Name      string    `db:"name"`
}

// VersionedPurl adds a version under a BasePurl.
type VersionedPurl struct {
	ID      uuid.UUID `db:"id"`
	BaseID  uuid.UUID `db:"base_purl_id"`
	Version string    `db:"version"`
}

// QualifiedPurl adds qualifiers under a VersionedPurl.
type QualifiedPurl struct {
	ID          uuid.UUID         `db:"id"`
	VersionedID uuid.UUID         `db:"versioned_purl_id"`
	Qualifiers  map[string]string `db:"qualifiers"`
}

// Cpe is the stored form of a CPE WFN, keyed by its stable UUID.
type Cpe struct {
	ID  uuid.UUID `db:"id"`
	WFN string    `db:"wfn"` // bound CPE 2.3 formatted string
}
