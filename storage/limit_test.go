package storage

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestLimitedReaderIdentityStopsAtLimit(t *testing.T) {
	r, err := NewLimitedReader(bytes.NewReader([]byte("hello world")), EncodingIdentity, 5)
	if err != nil {
		t.Fatalf("NewLimitedReader: %v", err)
	}
	defer r.Close()

	buf, err := io.ReadAll(r)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("ReadAll error = %v, want ErrLimitExceeded", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q, want %q", buf, "hello")
	}
}

func TestLimitedReaderUnderLimitReadsFully(t *testing.T) {
	r, err := NewLimitedReader(bytes.NewReader([]byte("hi")), EncodingIdentity, 100)
	if err != nil {
		t.Fatalf("NewLimitedReader: %v", err)
	}
	defer r.Close()

	buf, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(buf) != "hi" {
		t.Fatalf("got %q, want %q", buf, "hi")
	}
}

func TestLimitedReaderDecompressesGzip(t *testing.T) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write([]byte("decompressed content")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	r, err := NewLimitedReader(&compressed, EncodingGzip, 1<<20)
	if err != nil {
		t.Fatalf("NewLimitedReader: %v", err)
	}
	defer r.Close()

	buf, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(buf) != "decompressed content" {
		t.Fatalf("got %q", buf)
	}
}

func TestLimitedReaderGzipExceedsLimit(t *testing.T) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(bytes.Repeat([]byte("a"), 1000)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	r, err := NewLimitedReader(&compressed, EncodingGzip, 10)
	if err != nil {
		t.Fatalf("NewLimitedReader: %v", err)
	}
	defer r.Close()

	_, err = io.ReadAll(r)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("ReadAll error = %v, want ErrLimitExceeded", err)
	}
}

func TestNewLimitedReaderRejectsUnknownEncoding(t *testing.T) {
	if _, err := NewLimitedReader(bytes.NewReader(nil), Encoding("brotli"), 10); err == nil {
		t.Fatal("expected an error for an unsupported encoding")
	}
}
