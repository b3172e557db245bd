// Package editor implements the add/edit form of a collection: a draft of
// one record's editable fields, checked against its baseline before the form
// may close, and saved through the collection's Store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/guard"
)

// ErrNotOpen is returned when a draft operation runs with no form open.
var ErrNotOpen = errors.New("no draft open")

// Surface is one editing form bound to a collection.
type Surface[T collection.Record] struct {
	store    *collection.Store[T]
	session  *guard.Session
	owner    string
	editable func(T) collection.Fields
	guard    *guard.Guard

	mu        sync.Mutex
	open      bool
	id        string
	draft     collection.Fields
	prompting bool
	saving    bool
	err       error
}

// NewSurface creates a closed surface. editable extracts the form fields of
// a record; owner names the surface in session's dirty registry. A nil
// session gives the surface a private one.
func NewSurface[T collection.Record](store *collection.Store[T], session *guard.Session, owner string, editable func(T) collection.Fields) *Surface[T] {
	if session == nil {
		session = guard.NewSession()
	}
	s := &Surface[T]{
		store:    store,
		session:  session,
		owner:    owner,
		editable: editable,
		guard:    guard.New(),
	}
	return s
}

// OpenAdd opens the form for a new record prefilled with defaults.
func (s *Surface[T]) OpenAdd(defaults collection.Fields) {
	s.begin("", defaults)
}

// OpenEdit opens the form on rec's current values.
func (s *Surface[T]) OpenEdit(rec T) {
	s.begin(rec.RecordID(), s.editable(rec))
}

// OpenEditID opens the form on the stored record with the given ID.
func (s *Surface[T]) OpenEditID(id string) error {
	for _, rec := range s.store.Items() {
		if rec.RecordID() == id {
			s.OpenEdit(rec)
			return nil
		}
	}
	return &collection.Error{Op: "edit", Collection: s.store.Name(), ID: id, Kind: collection.ErrNotFound}
}

func (s *Surface[T]) begin(id string, fields collection.Fields) {
	draft := fields.Clone()
	if draft == nil {
		draft = collection.Fields{}
	}

	s.mu.Lock()
	s.guard.BeginEditing(draft)
	s.open = true
	s.id = id
	s.draft = draft
	s.prompting = false
	s.err = nil
	s.mu.Unlock()

	s.session.RegisterDirty(s.owner, false)
	s.session.OnDiscard(s.owner, s.Discard)
}

// Set changes one field of the draft.
func (s *Surface[T]) Set(key string, value any) error {
	return s.Patch(collection.Fields{key: value})
}

// Patch changes several fields of the draft at once.
func (s *Surface[T]) Patch(fields collection.Fields) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrNotOpen
	}
	for k, v := range fields.Clone() {
		s.draft[k] = v
	}
	dirty := s.guard.IsDirty(s.draft)
	s.mu.Unlock()

	s.session.RegisterDirty(s.owner, dirty)
	return nil
}

// Draft returns a copy of the draft, or nil when the form is closed.
func (s *Surface[T]) Draft() collection.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// IsDirty reports whether the draft has unsaved changes.
func (s *Surface[T]) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open && s.guard.IsDirty(s.draft)
}

// Open reports whether the form is open.
func (s *Surface[T]) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// EditingID returns the ID of the record being edited, or "" when adding.
func (s *Surface[T]) EditingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Prompting reports whether a close is waiting for discard or keep editing.
func (s *Surface[T]) Prompting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompting
}

// Err returns the error of the last failed save.
func (s *Surface[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Save writes the draft: an update of the fields that differ from the
// baseline when editing, an insert when adding. An unchanged edit writes
// nothing. On success the baseline becomes the saved draft and the form
// closes; the returned ID is the saved record's. On failure the form stays
// open with the draft intact and Err set.
//
// When the write succeeds but the following refresh fails, the form still
// closes and the refresh error is returned.
func (s *Surface[T]) Save(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return "", ErrNotOpen
	}
	if s.saving {
		s.mu.Unlock()
		return "", fmt.Errorf("save %s: already in progress", s.owner)
	}
	s.saving = true
	id := s.id
	draft := s.draft.Clone()
	s.mu.Unlock()

	var err error
	if id != "" {
		if changes := s.guard.Changed(draft); len(changes) > 0 {
			err = s.store.Update(ctx, id, changes)
		}
	} else {
		var rec T
		rec, err = s.store.Add(ctx, draft)
		if err == nil || errors.Is(err, collection.ErrFetch) {
			id = rec.RecordID()
		}
	}

	s.mu.Lock()
	s.saving = false
	if err != nil && !errors.Is(err, collection.ErrFetch) {
		s.err = err
		s.mu.Unlock()
		return "", err
	}
	s.guard.Saved(draft)
	s.closeLocked()
	s.mu.Unlock()

	s.session.Release(s.owner)
	return id, err
}

// RequestClose closes the form when the draft is clean and reports true.
// A dirty draft starts a prompt instead and RequestClose reports false.
func (s *Surface[T]) RequestClose() bool {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return true
	}
	if s.guard.RequestClose(s.draft) == guard.Confirm {
		s.prompting = true
		s.mu.Unlock()
		return false
	}
	s.closeLocked()
	s.mu.Unlock()

	s.session.Release(s.owner)
	return true
}

// KeepEditing dismisses the prompt; the draft stays as it was.
func (s *Surface[T]) KeepEditing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompting = false
}

// Discard closes the form and drops the draft. Nothing is written.
func (s *Surface[T]) Discard() {
	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()

	s.session.Release(s.owner)
}

func (s *Surface[T]) closeLocked() {
	s.open = false
	s.id = ""
	s.draft = nil
	s.prompting = false
	s.err = nil
}
