// Package purl implements the identity layer for Package URLs: parsing,
// canonical stringification, and the three-level UUID derivation that every
// other record in the store hangs off of.
package purl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	packageurl "github.com/package-url/packageurl-go"
)

// namespace is the fixed UUID namespace all PURL UUIDs are derived from.
var namespace = uuid.MustParse("3738b43d-fd03-4a9d-849c-489bec610f06")

// Purl is a parsed Package URL.
//
// Equality is structural: qualifier order is irrelevant. Type and name are
// lower-cased per the PURL spec; namespace is left as provided since some
// ecosystems (e.g. Maven group ids) are case-sensitive.
type Purl struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers map[string]string
}

// Error is returned for malformed PURL strings.
type Error struct {
	msg   string
	inner error
}

func (e *Error) Error() string {
	if e.inner != nil {
		return fmt.Sprintf("purl: %s: %v", e.msg, e.inner)
	}
	return fmt.Sprintf("purl: %s", e.msg)
}

func (e *Error) Unwrap() error { return e.inner }

// Parse parses a canonical PURL string.
func Parse(s string) (Purl, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return Purl{}, &Error{msg: "invalid package url", inner: err}
	}
	return fromPackageURL(p), nil
}

func fromPackageURL(p packageurl.PackageURL) Purl {
	quals := make(map[string]string, len(p.Qualifiers))
	for _, q := range p.Qualifiers {
		quals[q.Key] = q.Value
	}
	return Purl{
		Type:       strings.ToLower(p.Type),
		Namespace:  p.Namespace,
		Name:       strings.ToLower(p.Name),
		Version:    p.Version,
		Qualifiers: quals,
	}
}

func (p Purl) toPackageURL() packageurl.PackageURL {
	keys := p.sortedQualifierKeys()
	quals := make(packageurl.Qualifiers, 0, len(keys))
	for _, k := range keys {
		quals = append(quals, packageurl.Qualifier{Key: k, Value: p.Qualifiers[k]})
	}
	return packageurl.PackageURL{
		Type:       p.Type,
		Namespace:  p.Namespace,
		Name:       p.Name,
		Version:    p.Version,
		Qualifiers: quals,
	}
}

// sortedQualifierKeys returns the qualifier keys in sorted order. Every place
// that walks qualifiers (stringification, UUID derivation) MUST use this so
// identical qualifier sets always produce identical output, per the
// package-level invariant.
func (p Purl) sortedQualifierKeys() []string {
	keys := make([]string, 0, len(p.Qualifiers))
	for k := range p.Qualifiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the canonical PURL string, with qualifiers emitted in
// key-sorted order so serialization is deterministic.
func (p Purl) String() string {
	pu := p.toPackageURL()
	return pu.String()
}

// PackageUUID derives the identity UUID for the (type, namespace, name)
// triple, ignoring version and qualifiers.
func (p Purl) PackageUUID() uuid.UUID {
	id := uuid.NewSHA1(namespace, []byte(p.Type))
	if p.Namespace != "" {
		id = uuid.NewSHA1(id, []byte(p.Namespace))
	}
	return uuid.NewSHA1(id, []byte(p.Name))
}

// VersionUUID derives the identity UUID for (type, namespace, name, version).
func (p Purl) VersionUUID() uuid.UUID {
	return uuid.NewSHA1(p.PackageUUID(), []byte(p.Version))
}

// QualifierUUID derives the identity UUID for the fully qualified PURL,
// folding in qualifiers in key-sorted order.
func (p Purl) QualifierUUID() uuid.UUID {
	id := p.VersionUUID()
	for _, k := range p.sortedQualifierKeys() {
		id = uuid.NewSHA1(id, []byte(k))
		id = uuid.NewSHA1(id, []byte(p.Qualifiers[k]))
	}
	return id
}

// UUIDs returns the (package, version, qualifier) UUID triple in one pass.
func (p Purl) UUIDs() (pkg, version, qualified uuid.UUID) {
	pkg = p.PackageUUID()
	version = uuid.NewSHA1(pkg, []byte(p.Version))
	qualified = version
	for _, k := range p.sortedQualifierKeys() {
		qualified = uuid.NewSHA1(qualified, []byte(k))
		qualified = uuid.NewSHA1(qualified, []byte(p.Qualifiers[k]))
	}
	return pkg, version, qualified
}

// WithVersion returns a copy of p with the version replaced.
func (p Purl) WithVersion(v string) Purl {
	q := make(map[string]string, len(p.Qualifiers))
	for k, v := range p.Qualifiers {
		q[k] = v
	}
	p.Qualifiers = q
	p.Version = v
	return p
}

// ToBase drops version and qualifiers, leaving only (type, namespace, name).
func (p Purl) ToBase() Purl {
	return Purl{Type: p.Type, Namespace: p.Namespace, Name: p.Name}
}

// ToVersion drops qualifiers, leaving (type, namespace, name, version).
func (p Purl) ToVersion() Purl {
	return Purl{Type: p.Type, Namespace: p.Namespace, Name: p.Name, Version: p.Version}
}

// Equal reports structural equality: qualifier map contents, not order.
func (p Purl) Equal(o Purl) bool {
	if p.Type != o.Type || p.Namespace != o.Namespace || p.Name != o.Name || p.Version != o.Version {
		return false
	}
	if len(p.Qualifiers) != len(o.Qualifiers) {
		return false
	}
	for k, v := range p.Qualifiers {
		if ov, ok := o.Qualifiers[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// EqualString reports whether s parses to a Purl structurally equal to p.
func (p Purl) EqualString(s string) bool {
	other, err := Parse(s)
	if err != nil {
		return false
	}
	return p.Equal(other)
}

// CompareString orders p against a raw PURL string: equal if s parses to a
// structurally-equal Purl, else by canonical-string lexicographic order.
func (p Purl) CompareString(s string) int {
	if p.EqualString(s) {
		return 0
	}
	return strings.Compare(p.String(), s)
}

// Like reports whether the URL-decoded pattern is a substring of the
// canonical PURL string.
func (p Purl) Like(pattern string) bool {
	decoded, err := url.QueryUnescape(pattern)
	if err != nil {
		return false
	}
	return strings.Contains(p.String(), decoded)
}

// MarshalText implements encoding.TextMarshaler.
func (p Purl) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Purl) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON implements json.Marshaler, representing a Purl as its
// canonical PURL string.
func (p Purl) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Purl) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}
