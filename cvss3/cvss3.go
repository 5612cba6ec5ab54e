// Package cvss3 implements CVSS v3.0/v3.1 base vector parsing, scoring, and
// severity banding.
//
// Parsing and scoring come from github.com/quay/claircore/toolkit's
// toolkit/types/cvss, the library claircore's own go.mod requires for this.
// That module versions independently of claircore and is fetched with a
// plain require line, same as golang.org/x/sync; no replace directive is
// needed. Severity banding stays hand-rolled here since it is just the
// CVSSv3.1 score-to-qualitative-rating table, already exactly what the
// store's Cvss3 entity needs.
package cvss3

import (
	tkcvss "github.com/quay/claircore/toolkit/types/cvss"
)

// Vector is a CVSS v3 base vector.
type Vector struct {
	tkcvss.V3
}

// Parse parses a CVSS v3 vector string such as
// "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H".
func Parse(s string) (Vector, error) {
	v, err := tkcvss.ParseV3(s)
	if err != nil {
		return Vector{}, err
	}
	return Vector{V3: v}, nil
}

// Severity bands a score into the CVSSv3.1 qualitative rating.
func Severity(score float64) string {
	switch {
	case score < 0.1:
		return "none"
	case score < 4:
		return "low"
	case score < 7:
		return "medium"
	case score < 9:
		return "high"
	default:
		return "critical"
	}
}
