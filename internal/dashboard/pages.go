package dashboard

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/table"
)

func (m *Module[T]) base() string { return "/api/v1/" + m.def.Name }

// render writes the list page for ws with status and an optional notice.
func (m *Module[T]) render(w http.ResponseWriter, r *http.Request, ws *workspace[T], status int, notice string) {
	model := m.view(r.Context(), ws, nil).BuildPending(m.ctrl.Rows(), m.ctrl.Pending())
	page := table.Page{
		Title:  m.def.Title,
		Base:   m.base(),
		Model:  model,
		Dialog: ws.dialog.Model(),
		Notice: notice,
		CanAdd: true,
	}
	m.serve(w, r, table.PageView(page), status)
}

// serve renders c into a buffer and writes it with status.
func (m *Module[T]) serve(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	templ.Handler(c,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(_ *http.Request, err error) http.Handler {
			m.logger.Error("render page", zap.String("collection", m.def.Name), zap.Error(err))
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "render failed", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

func (m *Module[T]) redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, m.base()+"/table", http.StatusSeeOther)
}

// handleTable renders the list page, loading the collection on first use.
// A failed load shows the error with whatever rows were loaded before.
func (m *Module[T]) handleTable(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	notice := ""
	if err := m.ensureLoaded(r.Context()); err != nil {
		notice = err.Error()
	} else if err := m.store.LastError(); err != nil {
		notice = err.Error()
	}
	m.render(w, r, ws, http.StatusOK, notice)
}

// handleTableMove handles the reorder arrows (?id=&dir=). It redirects as
// soon as the swap is displayed; the list page disables the arrows until
// the write settles.
func (m *Module[T]) handleTableMove(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	if err := m.ensureLoaded(r.Context()); err != nil {
		m.render(w, r, ws, http.StatusBadGateway, err.Error())
		return
	}
	var result error
	v := m.view(r.Context(), ws, func(err error) { result = err })
	if v.OnReorder == nil {
		m.render(w, r, ws, http.StatusConflict, collection.ErrNotSortable.Error())
		return
	}
	dir, err := collection.ParseDirection(r.URL.Query().Get("dir"))
	if err != nil {
		m.render(w, r, ws, http.StatusBadRequest, err.Error())
		return
	}
	index := m.indexOf(r.URL.Query().Get("id"))
	if index < 0 {
		m.render(w, r, ws, http.StatusNotFound, m.notFound(r.URL.Query().Get("id")).Error())
		return
	}
	v.OnReorder(index, dir)
	switch {
	case result == nil:
		m.redirect(w, r)
	case errors.Is(result, collection.ErrReorderPending):
		m.render(w, r, ws, http.StatusConflict, result.Error())
	default:
		m.render(w, r, ws, http.StatusBadGateway, result.Error())
	}
}

// handleTableDelete opens the delete dialog for ?id=.
func (m *Module[T]) handleTableDelete(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	id := r.URL.Query().Get("id")
	if id == "" {
		m.render(w, r, ws, http.StatusBadRequest, "missing id")
		return
	}
	m.view(r.Context(), ws, nil).OnDelete(id)
	m.render(w, r, ws, http.StatusOK, "")
}

// handleTableConfirm deletes the dialog's target. A failure keeps the dialog
// open with the error shown.
func (m *Module[T]) handleTableConfirm(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	err := ws.dialog.Confirm(r.Context(), m.deleteRecord)
	switch {
	case err == nil:
		m.redirect(w, r)
	case errors.Is(err, table.ErrNoTarget), errors.Is(err, table.ErrBusy):
		m.render(w, r, ws, http.StatusConflict, err.Error())
	case errors.Is(err, collection.ErrNotFound):
		m.render(w, r, ws, http.StatusNotFound, "")
	default:
		m.render(w, r, ws, http.StatusBadGateway, "")
	}
}

func (m *Module[T]) handleTableCancel(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	ws.dialog.Cancel()
	m.redirect(w, r)
}
