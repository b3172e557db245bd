package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Op names a Resource method, for call accounting and fault injection.
type Op string

const (
	OpList   Op = "list"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Compile-time interface guard.
var _ Resource[memoryRecord] = (*MemoryResource[memoryRecord])(nil)

type memoryRecord struct{}

func (memoryRecord) RecordID() string     { return "" }
func (memoryRecord) RecordSortOrder() int { return 0 }

type memoryRow struct {
	seq  int
	data map[string]any
}

// MemoryResource is an in-process Resource. Records are held as their JSON
// field maps, so any T whose JSON names match the column names works. It
// backs the "memory" driver and the package tests.
type MemoryResource[T Record] struct {
	name string

	mu        sync.Mutex
	rows      []memoryRow
	seq       int
	calls     map[Op]int
	intercept func(op Op, id string) error
}

// NewMemoryResource returns a resource named name holding seed. Seed records
// without an ID get a generated one.
func NewMemoryResource[T Record](name string, seed ...T) *MemoryResource[T] {
	r := &MemoryResource[T]{name: name, calls: make(map[Op]int)}
	for _, rec := range seed {
		data, err := toMap(rec)
		if err != nil {
			panic(fmt.Sprintf("collection: seed %s: %v", name, err))
		}
		if id, _ := data["id"].(string); id == "" {
			data["id"] = uuid.NewString()
		}
		r.seq++
		r.rows = append(r.rows, memoryRow{seq: r.seq, data: data})
	}
	return r
}

// Name implements Resource.
func (r *MemoryResource[T]) Name() string { return r.name }

// SetIntercept installs fn to run before every call. A non-nil return fails
// the call with that error. fn runs without the resource lock held, so it
// may block to hold a call in flight.
func (r *MemoryResource[T]) SetIntercept(fn func(op Op, id string) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intercept = fn
}

// Calls returns how many times op has been invoked.
func (r *MemoryResource[T]) Calls(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (r *MemoryResource[T]) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *MemoryResource[T]) enter(op Op, id string) error {
	r.mu.Lock()
	r.calls[op]++
	fn := r.intercept
	r.mu.Unlock()
	if fn != nil {
		return fn(op, id)
	}
	return nil
}

// List implements Resource. Only sort_order (or "" for insertion order) is
// accepted as orderBy. Equal positions are ordered by ID.
func (r *MemoryResource[T]) List(_ context.Context, orderBy string) ([]T, error) {
	if err := r.enter(OpList, ""); err != nil {
		return nil, err
	}
	if orderBy != "" && orderBy != SortOrderField {
		return nil, fmt.Errorf("order by %q: %w", orderBy, ErrValidation)
	}

	r.mu.Lock()
	rows := make([]memoryRow, len(r.rows))
	copy(rows, r.rows)
	r.mu.Unlock()

	if orderBy == SortOrderField {
		sort.SliceStable(rows, func(i, j int) bool {
			pi, pj := position(rows[i].data), position(rows[j].data)
			if pi != pj {
				return pi < pj
			}
			return rowID(rows[i].data) < rowID(rows[j].data)
		})
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := fromMap[T](row.data)
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", r.name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Insert implements Resource.
func (r *MemoryResource[T]) Insert(_ context.Context, fields Fields) (T, error) {
	var zero T
	if err := r.enter(OpInsert, ""); err != nil {
		return zero, err
	}

	data, err := normalize(fields)
	if err != nil {
		return zero, err
	}
	data["id"] = uuid.NewString()
	rec, err := fromMap[T](data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	r.mu.Lock()
	r.seq++
	r.rows = append(r.rows, memoryRow{seq: r.seq, data: data})
	r.mu.Unlock()
	return rec, nil
}

// Update implements Resource.
func (r *MemoryResource[T]) Update(_ context.Context, id string, fields Fields) error {
	if err := r.enter(OpUpdate, id); err != nil {
		return err
	}

	patch, err := normalize(fields)
	if err != nil {
		return err
	}
	delete(patch, "id")

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].data["id"] != id {
			continue
		}
		merged := make(map[string]any, len(r.rows[i].data)+len(patch))
		for k, v := range r.rows[i].data {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		if _, err := fromMap[T](merged); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		r.rows[i].data = merged
		return nil
	}
	return ErrNotFound
}

// Delete implements Resource.
func (r *MemoryResource[T]) Delete(_ context.Context, id string) error {
	if err := r.enter(OpDelete, id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].data["id"] == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// normalize round-trips fields through JSON so stored values have the same
// shapes a decoded record would produce.
func normalize(fields Fields) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromMap[T any](data map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

func position(data map[string]any) float64 {
	switch v := data[SortOrderField].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func rowID(data map[string]any) string {
	id, _ := data["id"].(string)
	return id
}
