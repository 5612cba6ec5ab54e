// Package storage defines the object-storage backend for raw advisory and
// SBOM source documents, and the size-limited decompressing reader uploads
// are read through before being handed to a Backend.
//
// Grounded on spec.md §6's storage_backend interface (retrieve/store,
// sha256-derived key) and the Backpressure requirement in §5. The reference
// implementation lives in storage/fs, modeled on claircore's
// libvuln/jsonblob disk-buffering pattern.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Backend.Retrieve when key names no stored
// document.
var ErrNotFound = errors.New("storage: key not found")

// Backend is the object store for raw source documents. A document's key
// is the hex-encoded sha256 of its (decompressed) content, so Store is
// naturally idempotent: storing the same bytes twice yields the same key.
type Backend interface {
	// Retrieve opens the document named by key. Callers must Close the
	// returned reader. Returns ErrNotFound if key is unknown.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Store persists the entirety of r and returns its sha256 key and
	// byte length.
	Store(ctx context.Context, r io.Reader) (key string, size int64, err error)
}
