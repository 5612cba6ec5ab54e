// Package fs is a filesystem-backed storage.Backend reference
// implementation: documents are written to a temp file in the root
// directory, then renamed into place, keyed by the hex sha256 of their
// content, and sharded into
// two-character subdirectories to keep any one directory from growing
// unbounded.
//
// Grounded on claircore's libvuln/jsonblob disk-buffering pattern
// (diskbuf_unix.go's os.CreateTemp-then-manage-the-fd approach), adapted
// here from "throwaway scratch buffer" to "durable content-addressed
// store" by renaming into place instead of removing.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/trustd-project/trustd/storage"
	"github.com/trustd-project/trustd/trustderr"
)

// Backend stores documents under dir, one file per sha256 key.
type Backend struct {
	dir string
}

// New constructs a Backend rooted at dir, creating it if necessary.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, trustderr.Wrap(trustderr.Storage, "New", "create root dir", err)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) path(key string) string {
	if len(key) < 2 {
		return filepath.Join(b.dir, key)
	}
	return filepath.Join(b.dir, key[:2], key)
}

// Retrieve opens the document named by key.
func (b *Backend) Retrieve(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, trustderr.Wrap(trustderr.Storage, "Retrieve", "open "+key, err)
	}
	return f, nil
}

// Store writes the entirety of r to a temp file, computing its sha256 key
// as it goes, then renames it into its sharded, key-named final location.
// Storing identical content twice overwrites the same path with the same
// bytes, making Store idempotent.
func (b *Backend) Store(_ context.Context, r io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(b.dir, "upload-*.tmp")
	if err != nil {
		return "", 0, trustderr.Wrap(trustderr.Storage, "Store", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		tmp.Close()
		return "", 0, trustderr.Wrap(trustderr.Storage, "Store", "write content", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, trustderr.Wrap(trustderr.Storage, "Store", "close temp file", err)
	}

	key := hex.EncodeToString(h.Sum(nil))
	destDir := filepath.Join(b.dir, key[:2])
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", 0, trustderr.Wrap(trustderr.Storage, "Store", "create shard dir", err)
	}
	if err := os.Rename(tmpName, filepath.Join(destDir, key)); err != nil {
		return "", 0, trustderr.Wrap(trustderr.Storage, "Store", "rename into place", err)
	}
	return key, n, nil
}

var _ storage.Backend = (*Backend)(nil)
