package collection

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	sortable bool
	logger   *zap.Logger
}

// WithSortable enables Reorder for collections that support manual ordering.
func WithSortable() Option {
	return func(o *storeOptions) { o.sortable = true }
}

// WithLogger sets the logger used for refresh and failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Store is the single point of truth for one collection. It is safe for
// concurrent use; its lock is never held across a remote call, and its
// contents change only after a remote call has resolved.
type Store[T Record] struct {
	res      Resource[T]
	name     string
	sortable bool
	logger   *zap.Logger

	// reorderMu serializes Reorder so two full-order writes never interleave.
	reorderMu sync.Mutex

	mu      sync.Mutex
	items   []T
	loaded  bool
	lastErr error
	closed  bool
	subs    map[int]func([]T)
	nextSub int
}

// NewStore creates a Store over res. The store is empty until FetchAll runs.
func NewStore[T Record](res Resource[T], opts ...Option) *Store[T] {
	o := storeOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		res:      res,
		name:     res.Name(),
		sortable: o.sortable,
		logger:   o.logger,
		subs:     make(map[int]func([]T)),
	}
}

// Name returns the collection name.
func (s *Store[T]) Name() string { return s.name }

// Sortable reports whether Reorder is supported.
func (s *Store[T]) Sortable() bool { return s.sortable }

// Items returns a copy of the last fetched contents.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := cloneSlice(s.items)
	if out == nil {
		out = []T{}
	}
	return out
}

// Loaded reports whether at least one FetchAll has completed.
func (s *Store[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LastError returns the error of the most recent failed refresh, or nil once
// a refresh succeeds.
func (s *Store[T]) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to be called with the new contents after every
// completed refresh. The returned function removes the subscription.
func (s *Store[T]) Subscribe(fn func([]T)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Close detaches the store. Responses that arrive afterwards are ignored and
// further calls fail with ErrClosed.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func([]T))
}

func (s *Store[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store[T]) closedErr(op, id string) error {
	return &Error{Op: op, Collection: s.name, ID: id, Kind: ErrClosed}
}

// FetchAll replaces the contents with every remote record ordered by
// sort_order ascending. On failure the previous contents are kept.
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	if s.isClosed() {
		return nil, s.closedErr(opFetch, "")
	}

	items, err := s.res.List(ctx, SortOrderField)
	if err != nil {
		werr := classify(opFetch, s.name, "", err)
		s.mu.Lock()
		if !s.closed {
			s.lastErr = werr
		}
		s.mu.Unlock()
		s.logger.Warn("collection refresh failed", zap.String("collection", s.name), zap.Error(err))
		return nil, werr
	}
	if items == nil {
		items = []T{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, s.closedErr(opFetch, "")
	}
	s.items = items
	s.loaded = true
	s.lastErr = nil
	subs := make([]func([]T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("collection refreshed", zap.String("collection", s.name), zap.Int("count", len(items)))
	for _, fn := range subs {
		fn(cloneSlice(items))
	}
	return cloneSlice(items), nil
}

// Add inserts a record and refreshes. When fields carry no sort_order the
// new record is placed last, loading the collection first if nothing has
// been fetched yet.
func (s *Store[T]) Add(ctx context.Context, fields Fields) (T, error) {
	var zero T
	if s.isClosed() {
		return zero, s.closedErr(opAdd, "")
	}

	f := fields.Clone()
	if f == nil {
		f = Fields{}
	}
	delete(f, "id")
	if _, ok := f[SortOrderField]; !ok {
		if !s.Loaded() {
			if _, err := s.FetchAll(ctx); err != nil {
				return zero, &Error{Op: opAdd, Collection: s.name, Kind: ErrRemote, Err: cause(err)}
			}
		}
		s.mu.Lock()
		f[SortOrderField] = len(s.items)
		s.mu.Unlock()
	}

	rec, err := s.res.Insert(ctx, f)
	if err != nil {
		s.logger.Warn("collection insert failed", zap.String("collection", s.name), zap.Error(err))
		return zero, classify(opAdd, s.name, "", err)
	}
	if _, err := s.FetchAll(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// Update applies a partial update to the record with the given ID and
// refreshes.
func (s *Store[T]) Update(ctx context.Context, id string, fields Fields) error {
	if s.isClosed() {
		return s.closedErr(opUpdate, id)
	}

	f := fields.Clone()
	delete(f, "id")
	if err := s.res.Update(ctx, id, f); err != nil {
		s.logger.Warn("collection update failed",
			zap.String("collection", s.name), zap.String("id", id), zap.Error(err))
		return classify(opUpdate, s.name, id, err)
	}
	_, err := s.FetchAll(ctx)
	return err
}

// Delete removes the record with the given ID and refreshes. Deleting an ID
// that no longer exists fails with ErrNotFound.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if s.isClosed() {
		return s.closedErr(opDelete, id)
	}

	if err := s.res.Delete(ctx, id); err != nil {
		s.logger.Warn("collection delete failed",
			zap.String("collection", s.name), zap.String("id", id), zap.Error(err))
		return classify(opDelete, s.name, id, err)
	}
	_, err := s.FetchAll(ctx)
	return err
}

// Reorder persists ordered as the new order: each record's sort_order is set
// to its 0-based position. The writes are issued concurrently and Reorder
// returns only after all of them have resolved. If any write fails the
// store contents are left as they were and no refresh happens. Concurrent
// calls run one after another.
func (s *Store[T]) Reorder(ctx context.Context, ordered []T) error {
	if !s.sortable {
		return &Error{Op: opReorder, Collection: s.name, Kind: ErrNotSortable}
	}
	s.reorderMu.Lock()
	defer s.reorderMu.Unlock()
	if s.isClosed() {
		return s.closedErr(opReorder, "")
	}

	var g errgroup.Group
	for i, rec := range ordered {
		id := rec.RecordID()
		g.Go(func() error {
			if err := s.res.Update(ctx, id, Fields{SortOrderField: i}); err != nil {
				return fmt.Errorf("set position %d of %s: %w", i, id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("collection reorder failed", zap.String("collection", s.name), zap.Error(err))
		return &Error{Op: opReorder, Collection: s.name, Kind: ErrRemote, Err: err}
	}

	_, err := s.FetchAll(ctx)
	return err
}
