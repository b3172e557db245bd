// Package collection holds the authoritative, ordered contents of one named
// site collection (services, testimonials, process steps, ...) and the
// optimistic reorder state layered over it.
//
// A Store is the only component that writes to the remote Resource. Every
// successful mutation ends with exactly one authoritative refetch, so the
// store's contents after any settled operation match the remote exactly.
// A Controller keeps a transient reordered copy (the local view) so a move
// is visible before its writes have been persisted. The local view is
// discarded whenever a refetch completes.
package collection

import "context"

// SortOrderField is the column that positions a record among its siblings.
const SortOrderField = "sort_order"

// Record is one row of a collection. IDs are assigned by the remote
// resource at insert time and never generated by callers.
type Record interface {
	RecordID() string
	RecordSortOrder() int
}

// Fields maps a column name to a value. It is used for inserts and for
// partial updates, where absent keys are left untouched.
type Fields map[string]any

// Clone returns a deep copy of f. Slices and nested maps are copied so the
// clone can be mutated without affecting f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return t
		}
		return append([]string{}, t...)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case Fields:
		return t.Clone()
	case map[string]any:
		return map[string]any(Fields(t).Clone())
	default:
		return v
	}
}

// Resource is the remote collection a Store reads from and writes to.
// Implementations report a missing id with ErrNotFound and a rejected field
// set with ErrValidation; any other error is treated as a remote failure.
type Resource[T Record] interface {
	// Name returns the collection name (the remote table).
	Name() string

	// List returns every record ordered by the given column, ascending.
	List(ctx context.Context, orderBy string) ([]T, error)

	// Insert creates a record and returns it as stored, including its new ID.
	Insert(ctx context.Context, fields Fields) (T, error)

	// Update applies a partial update to the record with the given ID.
	Update(ctx context.Context, id string, fields Fields) error

	// Delete removes the record with the given ID.
	Delete(ctx context.Context, id string) error
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
