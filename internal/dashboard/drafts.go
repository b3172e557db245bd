package dashboard

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/editor"
	"github.com/HerbHall/atelier/internal/server"
)

// draftState is the JSON view of an admin's form.
type draftState struct {
	Open      bool              `json:"open"`
	EditingID string            `json:"editing_id,omitempty"`
	Draft     collection.Fields `json:"draft,omitempty"`
	Dirty     bool              `json:"dirty"`
	Prompt    bool              `json:"prompt"`
	Error     string            `json:"error,omitempty"`
}

// openRequest is the optional JSON body for POST /drafts.
type openRequest struct {
	ID string `json:"id"`
}

// saveResponse is returned by POST /drafts/save.
type saveResponse struct {
	ID      string `json:"id"`
	Warning string `json:"warning,omitempty"`
}

// closeResponse is returned by POST /drafts/close.
type closeResponse struct {
	Closed bool       `json:"closed"`
	Prompt bool       `json:"prompt"`
	Draft  draftState `json:"draft"`
}

func stateOf[T collection.Record](s *editor.Surface[T]) draftState {
	st := draftState{
		Open:      s.Open(),
		EditingID: s.EditingID(),
		Draft:     s.Draft(),
		Dirty:     s.IsDirty(),
		Prompt:    s.Prompting(),
	}
	if err := s.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func (m *Module[T]) handleDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	writeJSON(w, http.StatusOK, stateOf(ws.surface))
}

// handleOpenDraft opens the form: on the record named by ?id=, a form value
// or a JSON body, otherwise for a new record prefilled with the collection
// defaults. An open form with unsaved changes is never replaced.
func (m *Module[T]) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	id := r.URL.Query().Get("id")
	if id == "" {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var req openRequest
			if err := decodeJSON(w, r, &req, true); err != nil {
				server.BadRequest(w, err.Error(), r.URL.Path)
				return
			}
			id = req.ID
		} else {
			id = r.PostFormValue("id")
		}
	}
	if ws.surface.IsDirty() {
		server.Conflict(w, "a form with unsaved changes is open", r.URL.Path)
		return
	}

	if id == "" {
		ws.surface.OpenAdd(m.def.Defaults)
		writeJSON(w, http.StatusOK, stateOf(ws.surface))
		return
	}
	if err := m.ensureLoaded(r.Context()); err != nil {
		server.WriteError(w, r, err)
		return
	}
	var result error
	m.view(r.Context(), ws, func(err error) { result = err }).OnEdit(id)
	if result != nil {
		server.WriteError(w, r, result)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(ws.surface))
}

// handlePatchDraft merges the JSON body into the draft.
func (m *Module[T]) handlePatchDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	var fields collection.Fields
	if err := decodeJSON(w, r, &fields, false); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if err := ws.surface.Patch(fields); err != nil {
		server.Conflict(w, err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(ws.surface))
}

// handleSaveDraft saves the draft. A failed save keeps the form open with
// the draft intact.
func (m *Module[T]) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	id, err := ws.surface.Save(r.Context())
	switch {
	case errors.Is(err, editor.ErrNotOpen):
		server.Conflict(w, err.Error(), r.URL.Path)
		return
	case errors.Is(err, collection.ErrFetch):
		m.logger.Warn("refresh after save failed", zap.String("id", id), zap.Error(err))
		warn(w, err)
		writeJSON(w, http.StatusOK, saveResponse{ID: id, Warning: err.Error()})
		return
	case err != nil:
		server.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{ID: id})
}

// handleCloseDraft closes a clean form. A dirty one starts the
// discard-or-keep prompt instead.
func (m *Module[T]) handleCloseDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	closed := ws.surface.RequestClose()
	writeJSON(w, http.StatusOK, closeResponse{Closed: closed, Prompt: !closed, Draft: stateOf(ws.surface)})
}

func (m *Module[T]) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	ws.surface.Discard()
	writeJSON(w, http.StatusOK, stateOf(ws.surface))
}

func (m *Module[T]) handleKeepDraft(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	ws.surface.KeepEditing()
	writeJSON(w, http.StatusOK, stateOf(ws.surface))
}
