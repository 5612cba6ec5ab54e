// Package trustderr defines the store-wide error type: a kinded,
// op-tagged wrapper used across ingestion, query compilation, and
// authentication failures so callers can branch on Kind without parsing
// error strings.
//
// Grounded on claircore's errors.go ({Kind, Op, Message, Inner} with
// Is/Unwrap so errors.Is/errors.As work through the usual stdlib chains).
package trustderr

import "fmt"

// Kind classifies an Error for the purposes of transport-layer status
// mapping (see spec §6): SearchSyntax and Input map to 400, Unauthorized
// to 401, Forbidden to 403, NotFound to 404, Conflict to 409, everything
// else to 500.
type Kind int

const (
	Internal Kind = iota
	Input
	SearchSyntax
	NotFound
	Conflict
	Unauthorized
	Forbidden
	Storage
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case SearchSyntax:
		return "search_syntax"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Storage:
		return "storage"
	default:
		return "internal"
	}
}

// Error is the store's error type.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Inner   error
}

func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Inner)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, &trustderr.Error{Kind: trustderr.NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs an Error carrying an inner cause.
func Wrap(kind Kind, op, message string, inner error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Inner: inner}
}
