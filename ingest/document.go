// Package ingest ties an uploaded document's stored bytes to a
// source_document row, giving ingest/osv and ingest/sbom the uuid their
// rows key off of.
package ingest

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trustd-project/trustd/digest"
)

const insertSourceDocument = `
	INSERT INTO source_document (id, storage_key, size, sha256, sha384, sha512)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (storage_key) DO UPDATE SET size = EXCLUDED.size
	RETURNING id`

// StoreDocument records storageKey, the content-addressed key a
// storage.Backend.Store call returned for this document's bytes, as a
// source_document row inside tx, returning its id for use as an Advisory
// or Sbom's document_id. Re-ingesting identical bytes resolves to the
// same row by storage_key rather than creating a duplicate.
func StoreDocument(ctx context.Context, tx pgx.Tx, storageKey string, size int64, d digest.Digests) (uuid.UUID, error) {
	id := uuid.New()
	if err := tx.QueryRow(ctx, insertSourceDocument, id, storageKey, size, d.SHA256, d.SHA384, d.SHA512).Scan(&id); err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}
