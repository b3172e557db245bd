package collection

import (
	"context"
	"fmt"
	"sync"
)

// Direction moves a record one slot up (towards index 0) or down.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// ParseDirection maps "up" and "down" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("direction %q: %w", s, ErrValidation)
}

// State is the reorder state of a Controller.
type State int

const (
	// Settled means no reorder is in flight.
	Settled State = iota
	// OptimisticPending means a swapped order is displayed while its
	// writes are being persisted.
	OptimisticPending
)

func (s State) String() string {
	if s == OptimisticPending {
		return "optimistic_pending"
	}
	return "settled"
}

// Change describes the displayed order after a move was applied, the local
// view was discarded, or a pending write resolved. Err is the outcome of the
// write on the change that settles it.
type Change[T Record] struct {
	Rows  []T
	State State
	Err   error
}

// Controller moves records one slot at a time with optimistic display.
// The swapped order is installed as the local view before any write is
// issued; the store's next completed refresh discards it.
//
// Only one reorder may be in flight: Move and Apply fail with
// ErrReorderPending until the previous one has settled.
type Controller[T Record] struct {
	store  *Store[T]
	cancel func()

	mu        sync.Mutex
	view      []T
	pending   bool
	closed    bool
	watchers  map[int]func(Change[T])
	nextWatch int
}

// NewController creates a Controller over store.
func NewController[T Record](store *Store[T]) *Controller[T] {
	c := &Controller[T]{store: store, watchers: make(map[int]func(Change[T]))}
	c.cancel = store.Subscribe(func([]T) { c.resetView() })
	return c
}

func (c *Controller[T]) resetView() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = nil
	c.notifyLocked(nil)
}

// Watch registers fn to be called on every Change. fn runs with the
// controller's lock held, so it must not call back into the controller.
// The returned function removes the watcher.
func (c *Controller[T]) Watch(fn func(Change[T])) (cancel func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller[T]) notifyLocked(err error) {
	if len(c.watchers) == 0 {
		return
	}
	rows := c.view
	if rows == nil {
		rows = c.store.Items()
	}
	state := Settled
	if c.pending {
		state = OptimisticPending
	}
	for _, fn := range c.watchers {
		fn(Change[T]{Rows: cloneSlice(rows), State: state, Err: err})
	}
}

// Rows returns the order to display: the local view while one is set,
// otherwise the store's contents.
func (c *Controller[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != nil {
		return cloneSlice(c.view)
	}
	return c.store.Items()
}

// HasLocalView reports whether a local view currently overrides the
// store's order.
func (c *Controller[T]) HasLocalView() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view != nil
}

// Pending reports whether a reorder is in flight.
func (c *Controller[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// State returns the current reorder state.
func (c *Controller[T]) State() State {
	if c.Pending() {
		return OptimisticPending
	}
	return Settled
}

// Move swaps the record at index with its neighbour in direction dir.
//
// Moving the first record up or the last record down is a no-op: Move
// returns a nil channel and nil error and issues no write. Otherwise the
// swapped order is displayed immediately and persisted in the background;
// the returned channel receives the outcome of the persistence call once.
// A failed write leaves the swapped order displayed until the next
// successful refresh.
func (c *Controller[T]) Move(ctx context.Context, index int, dir Direction) (<-chan error, error) {
	if dir != Up && dir != Down {
		return nil, fmt.Errorf("move direction %d: %w", dir, ErrValidation)
	}
	if !c.store.Sortable() {
		return nil, &Error{Op: opReorder, Collection: c.store.Name(), Kind: ErrNotSortable}
	}

	c.mu.Lock()
	if err := c.busyLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	current := c.view
	if current == nil {
		current = c.store.Items()
	}
	target := index + int(dir)
	if index < 0 || index >= len(current) || target < 0 || target >= len(current) {
		c.mu.Unlock()
		return nil, nil
	}
	next := cloneSlice(current)
	next[index], next[target] = next[target], next[index]
	done := c.beginLocked(ctx, next)
	c.mu.Unlock()
	return done, nil
}

// Apply displays ordered as the new order and persists it in the background
// the same way Move does. ordered should hold every loaded record once.
func (c *Controller[T]) Apply(ctx context.Context, ordered []T) (<-chan error, error) {
	if !c.store.Sortable() {
		return nil, &Error{Op: opReorder, Collection: c.store.Name(), Kind: ErrNotSortable}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.busyLocked(); err != nil {
		return nil, err
	}
	out := cloneSlice(ordered)
	if out == nil {
		out = []T{}
	}
	return c.beginLocked(ctx, out), nil
}

func (c *Controller[T]) busyLocked() error {
	if c.closed {
		return &Error{Op: opReorder, Collection: c.store.Name(), Kind: ErrClosed}
	}
	if c.pending {
		return &Error{Op: opReorder, Collection: c.store.Name(), Kind: ErrReorderPending}
	}
	return nil
}

// beginLocked installs next as the local view and starts persisting it.
func (c *Controller[T]) beginLocked(ctx context.Context, next []T) <-chan error {
	c.view = next
	c.pending = true
	c.notifyLocked(nil)

	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		err := c.store.Reorder(bg, cloneSlice(next))
		c.mu.Lock()
		c.pending = false
		c.notifyLocked(err)
		c.mu.Unlock()
		done <- err
	}()
	return done
}

// Close stops tracking the store and drops every watcher. A reorder still in
// flight completes, but its refresh no longer touches this controller.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.watchers = make(map[int]func(Change[T]))
	c.mu.Unlock()
	c.cancel()
}
