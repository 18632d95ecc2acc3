package storage

import (
	"errors"
	"fmt"
)

// Kind classifies why a storage operation failed.
type Kind int

const (
	// KindUnavailable: the database file could not be opened or reached.
	KindUnavailable Kind = iota + 1
	// KindSchema: creating or migrating the schema failed.
	KindSchema
	// KindQuery: the statement itself failed; nothing was written.
	KindQuery
	// KindCorrupt: a stored row could not be decoded.
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindSchema:
		return "schema"
	case KindQuery:
		return "query"
	case KindCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the only error type returned by SQLiteRepository operations.
// A failed operation leaves the stored data unchanged.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the failure kind of err, or 0 if err is not a storage error.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return 0
}

// IsUnavailable reports whether err means the database could not be reached.
func IsUnavailable(err error) bool {
	return KindOf(err) == KindUnavailable
}
