package collection

import (
	"errors"
	"strings"
)

// Error kinds. Every error returned by a Store or Controller matches one of
// these with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrRemote         = errors.New("remote error")
	ErrFetch          = errors.New("fetch failed")
	ErrNotSortable    = errors.New("collection does not support manual ordering")
	ErrReorderPending = errors.New("reorder already pending")
	ErrClosed         = errors.New("collection closed")
)

// Operation names used in Error.Op.
const (
	opFetch   = "fetch"
	opAdd     = "add"
	opUpdate  = "update"
	opDelete  = "delete"
	opReorder = "reorder"
)

// Error describes a failed store operation. It unwraps to both its Kind and
// the underlying cause.
type Error struct {
	Op         string
	Collection string
	ID         string
	Kind       error
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Collection)
	b.WriteString(": ")
	b.WriteString(e.Op)
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	b.WriteString(": ")
	switch {
	case e.Err == nil:
		b.WriteString(e.Kind.Error())
	case errors.Is(e.Err, e.Kind):
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.Error())
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify wraps a resource error with the kind the caller should see.
// Refresh failures are always ErrFetch.
func classify(op, collection, id string, err error) *Error {
	kind := ErrRemote
	switch {
	case op == opFetch:
		kind = ErrFetch
	case errors.Is(err, ErrValidation):
		kind = ErrValidation
	case errors.Is(err, ErrNotFound):
		kind = ErrNotFound
	}
	return &Error{Op: op, Collection: collection, ID: id, Kind: kind, Err: err}
}

// cause strips the collection wrapper from err so it can be rewrapped with
// another kind.
func cause(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
