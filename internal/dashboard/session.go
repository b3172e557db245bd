package dashboard

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/guard"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/server"
	"github.com/HerbHall/atelier/internal/version"
)

var (
	_ plugin.Plugin       = (*Session)(nil)
	_ plugin.HTTPProvider = (*Session)(nil)
)

// Session serves the unsaved-changes signal that the dashboard shell
// consults before switching sections or signing out.
type Session struct {
	sessions *guard.Sessions
	logger   *zap.Logger

	mu sync.Mutex
	// left holds the destination released by the latest navigation of each
	// subject until the caller collects it.
	left map[string]string
}

// NewSession returns the session plugin over sessions, which must be the
// table shared with every collection module.
func NewSession(sessions *guard.Sessions) *Session {
	return &Session{sessions: sessions, logger: zap.NewNop(), left: make(map[string]string)}
}

func (s *Session) Info() plugin.Info {
	return plugin.Info{
		Name:        "session",
		Version:     version.Short(),
		Description: "Unsaved changes guard",
		Required:    true,
	}
}

func (s *Session) Init(_ *config.Config, logger *zap.Logger) error {
	if logger != nil {
		s.logger = logger
	}
	return nil
}

func (s *Session) Start(context.Context) error { return nil }
func (s *Session) Stop() error                 { return nil }

func (s *Session) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/dirty", Handler: s.handleDirty},
		{Method: "POST", Path: "/navigate", Handler: s.handleNavigate},
		{Method: "POST", Path: "/leave", Handler: s.handleLeave},
		{Method: "POST", Path: "/stay", Handler: s.handleStay},
	}
}

type dirtyResponse struct {
	Dirty        bool     `json:"dirty"`
	Owners       []string `json:"owners"`
	BeforeUnload bool     `json:"before_unload"`
}

type navigateRequest struct {
	To string `json:"to"`
}

type navigateResponse struct {
	Proceed bool     `json:"proceed"`
	Prompt  bool     `json:"prompt"`
	To      string   `json:"to,omitempty"`
	Owners  []string `json:"owners,omitempty"`
}

func (s *Session) release(subject, to string) func() {
	return func() {
		s.mu.Lock()
		s.left[subject] = to
		s.mu.Unlock()
	}
}

func (s *Session) collect(subject string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	to, ok := s.left[subject]
	delete(s.left, subject)
	return to, ok
}

func (s *Session) handleDirty(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(Subject(r))
	writeJSON(w, http.StatusOK, dirtyResponse{
		Dirty:        sess.IsAnyDirty(),
		Owners:       sess.DirtyOwners(),
		BeforeUnload: sess.BeforeUnload(),
	})
}

// handleNavigate asks to leave for req.To. With nothing dirty the answer is
// proceed; otherwise the destination is held and the caller must prompt,
// then call /leave or /stay.
func (s *Session) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	subject := Subject(r)
	sess := s.sessions.Get(subject)
	if sess.Navigate(s.release(subject, req.To)) {
		to, _ := s.collect(subject)
		writeJSON(w, http.StatusOK, navigateResponse{Proceed: true, To: to})
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{Prompt: true, To: req.To, Owners: sess.DirtyOwners()})
}

// handleLeave discards every dirty form and releases the held destination.
func (s *Session) handleLeave(w http.ResponseWriter, r *http.Request) {
	subject := Subject(r)
	sess := s.sessions.Get(subject)
	owners := sess.DirtyOwners()
	ran := sess.ConfirmLeave()
	to, _ := s.collect(subject)
	s.logger.Debug("left with unsaved changes",
		zap.String("subject", subject), zap.Strings("discarded", owners), zap.Bool("held", ran))
	writeJSON(w, http.StatusOK, navigateResponse{Proceed: true, To: to})
}

func (s *Session) handleStay(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(Subject(r))
	sess.Stay()
	writeJSON(w, http.StatusOK, dirtyResponse{
		Dirty:        sess.IsAnyDirty(),
		Owners:       sess.DirtyOwners(),
		BeforeUnload: sess.BeforeUnload(),
	})
}
