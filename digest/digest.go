// Package digest holds the multi-algorithm content digest type attached to
// SBOM source documents and advisory source documents.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
)

// Digests holds the three digest algorithms every stored source document
// must carry, per the store's invariant that a document's identity is
// verifiable under any of them.
type Digests struct {
	SHA256 string
	SHA384 string
	SHA512 string
}

// ErrIncomplete is returned when one of the three algorithms is missing.
var ErrIncomplete = errors.New("digest: SHA256, SHA384 and SHA512 must all be set")

// Validate checks that all three digests are present and look like hex
// (either case) of the expected length for their algorithm.
func (d Digests) Validate() error {
	if d.SHA256 == "" || d.SHA384 == "" || d.SHA512 == "" {
		return ErrIncomplete
	}
	if err := checkHex(d.SHA256, sha256.Size); err != nil {
		return fmt.Errorf("digest: sha256: %w", err)
	}
	if err := checkHex(d.SHA384, sha512.Size384); err != nil {
		return fmt.Errorf("digest: sha384: %w", err)
	}
	if err := checkHex(d.SHA512, sha512.Size); err != nil {
		return fmt.Errorf("digest: sha512: %w", err)
	}
	return nil
}

func checkHex(s string, size int) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("not valid hex: %w", err)
	}
	if len(b) != size {
		return fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return nil
}

// Compute derives all three digests of b.
func Compute(b []byte) Digests {
	s256 := sha256.Sum256(b)
	s384 := sha512.Sum384(b)
	s512 := sha512.Sum512(b)
	return Digests{
		SHA256: hex.EncodeToString(s256[:]),
		SHA384: hex.EncodeToString(s384[:]),
		SHA512: hex.EncodeToString(s512[:]),
	}
}
