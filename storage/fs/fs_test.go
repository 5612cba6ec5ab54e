package fs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/trustd-project/trustd/storage"
)

func TestStoreThenRetrieveRoundtrips(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	content := []byte("advisory source document bytes")
	key, size, err := b.Store(ctx, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}

	sum := sha256.Sum256(content)
	if want := hex.EncodeToString(sum[:]); key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}

	rc, err := b.Retrieve(ctx, key)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestStoreIsIdempotent(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	content := []byte("same bytes twice")

	key1, _, err := b.Store(ctx, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Store 1: %v", err)
	}
	key2, _, err := b.Store(ctx, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Store 2: %v", err)
	}
	if key1 != key2 {
		t.Fatalf("keys differ: %q vs %q", key1, key2)
	}
}

func TestRetrieveUnknownKeyReturnsErrNotFound(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = b.Retrieve(context.Background(), "deadbeef")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Retrieve error = %v, want storage.ErrNotFound", err)
	}
}
