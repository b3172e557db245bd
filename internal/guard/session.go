package guard

import (
	"sort"
	"sync"
)

// Session is the shared unsaved-changes signal for one admin. Editing
// surfaces register themselves under an owner name; navigation surfaces
// ask the session before leaving.
type Session struct {
	mu        sync.Mutex
	dirty     map[string]bool
	discard   map[string]func()
	pending   func()
	hasAction bool
}

// NewSession returns a clean session.
func NewSession() *Session {
	return &Session{
		dirty:   make(map[string]bool),
		discard: make(map[string]func()),
	}
}

// RegisterDirty records whether owner currently has unsaved changes.
func (s *Session) RegisterDirty(owner string, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dirty {
		s.dirty[owner] = true
		return
	}
	delete(s.dirty, owner)
}

// OnDiscard registers fn to run when the user confirms leaving while owner
// is dirty. Passing nil removes the hook.
func (s *Session) OnDiscard(owner string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.discard, owner)
		return
	}
	s.discard[owner] = fn
}

// Release forgets owner entirely. Surfaces call it when they close.
func (s *Session) Release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirty, owner)
	delete(s.discard, owner)
}

// IsAnyDirty reports whether any owner has unsaved changes.
func (s *Session) IsAnyDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0
}

// DirtyOwners returns the dirty owners in name order.
func (s *Session) DirtyOwners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dirty))
	for owner := range s.dirty {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

// Navigate runs action at once when nothing is dirty and returns true.
// Otherwise it holds action until ConfirmLeave or Stay and returns false,
// meaning the caller should prompt. A newer held action replaces an older
// one.
func (s *Session) Navigate(action func()) bool {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.pending, s.hasAction = nil, false
		s.mu.Unlock()
		if action != nil {
			action()
		}
		return true
	}
	s.pending, s.hasAction = action, true
	s.mu.Unlock()
	return false
}

// Pending reports whether a navigation is waiting for a decision.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasAction
}

// ConfirmLeave discards every dirty surface and runs the held action, if
// any. It reports whether an action was run.
func (s *Session) ConfirmLeave() bool {
	s.mu.Lock()
	action, ok := s.pending, s.hasAction
	s.pending, s.hasAction = nil, false
	hooks := make([]func(), 0, len(s.dirty))
	for owner := range s.dirty {
		if fn := s.discard[owner]; fn != nil {
			hooks = append(hooks, fn)
		}
	}
	s.dirty = make(map[string]bool)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if ok && action != nil {
		action()
	}
	return ok
}

// Stay drops the held action and keeps every draft.
func (s *Session) Stay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending, s.hasAction = nil, false
}

// BeforeUnload reports whether closing the whole window should be
// intercepted.
func (s *Session) BeforeUnload() bool {
	return s.IsAnyDirty()
}

// Sessions maps an admin subject to their Session.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions returns an empty session table.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Get returns the session for subject, creating it on first use.
func (s *Sessions) Get(subject string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[subject]
	if !ok {
		sess = NewSession()
		s.sessions[subject] = sess
	}
	return sess
}

// Drop forgets subject's session.
func (s *Sessions) Drop(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, subject)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
