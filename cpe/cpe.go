// Package cpe implements Common Platform Enumeration 2.3 well-formed names
// (WFNs): binding/unbinding and the stable UUID identity used by the rest of
// the store.
//
// The binding/unbinding itself is github.com/quay/claircore/toolkit's
// toolkit/types/cpe, the library claircore's own go.mod requires for this.
// That module versions independently of claircore and is fetched with a
// plain require line like golang.org/x/sync; no replace directive is
// needed. WFN is embedded rather than aliased so it can carry the UUID
// identity method the rest of this store relies on.
package cpe

import (
	"github.com/google/uuid"
	tkcpe "github.com/quay/claircore/toolkit/types/cpe"
)

// WFN is a well-formed name, as defined by the CPE 2.3 specification.
type WFN struct {
	tkcpe.WFN
}

// Unbind unbinds s as either a CPE 2.2 URI or a CPE 2.3 formatted string,
// whichever it looks like.
func Unbind(s string) (WFN, error) {
	w, err := tkcpe.Unbind(s)
	return WFN{WFN: w}, err
}

// UnbindFS parses a CPE 2.3 formatted string ("cpe:2.3:a:vendor:product:...")
// into a WFN.
func UnbindFS(s string) (WFN, error) {
	w, err := tkcpe.UnbindFS(s)
	return WFN{WFN: w}, err
}

// UnbindURI parses a CPE 2.2 URI into a WFN.
func UnbindURI(s string) (WFN, error) {
	w, err := tkcpe.UnbindURI(s)
	return WFN{WFN: w}, err
}

// namespace is the same fixed UUID namespace used by package purl.
var namespace = uuid.MustParse("3738b43d-fd03-4a9d-849c-489bec610f06")

// UUID derives the stable identity UUID for a WFN from its bound form.
func (w WFN) UUID() uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(w.BindFS()))
}
