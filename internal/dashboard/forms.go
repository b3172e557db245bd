package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/editor"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/internal/table"
)

const msgUnsavedOpen = "a form with unsaved changes is open"

// longText columns get a textarea.
var longText = map[string]bool{"quote": true, "description": true}

// formInputs returns the inputs of the edit page in column order. The
// position is managed by the reorder arrows and has no input.
func (m *Module[T]) formInputs(draft collection.Fields) []table.Field {
	labels := make(map[string]string, len(m.def.Columns))
	for _, c := range m.def.Columns {
		labels[c.Key] = c.Label
	}
	out := make([]table.Field, 0, len(m.def.Schema.Columns))
	for _, c := range m.def.Schema.Columns {
		if c.Name == collection.SortOrderField {
			continue
		}
		label := labels[c.Name]
		if label == "" {
			label = humanize(c.Name)
		}
		out = append(out, table.Field{
			Name:      c.Name,
			Label:     label,
			Value:     formValue(draft[c.Name]),
			Multiline: c.Kind == services.JSON || longText[c.Name],
		})
	}
	return out
}

func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []string:
		return strings.Join(t, "\n")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "\n")
	}
	return fmt.Sprint(v)
}

// postedFields converts the posted inputs to draft values by column kind.
// Lists take one item per line.
func (m *Module[T]) postedFields(r *http.Request) (collection.Fields, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	out := collection.Fields{}
	for _, c := range m.def.Schema.Columns {
		if c.Name == collection.SortOrderField {
			continue
		}
		vals, ok := r.PostForm[c.Name]
		if !ok {
			continue
		}
		raw := strings.Join(vals, "\n")
		switch c.Kind {
		case services.Int:
			raw = strings.TrimSpace(raw)
			if raw == "" {
				out[c.Name] = 0
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s must be a whole number: %w", humanize(c.Name), collection.ErrValidation)
			}
			out[c.Name] = n
		case services.JSON:
			items := []string{}
			for _, line := range strings.Split(raw, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					items = append(items, line)
				}
			}
			out[c.Name] = items
		default:
			out[c.Name] = strings.ReplaceAll(raw, "\r\n", "\n")
		}
	}
	return out, nil
}

// renderForm writes the edit page of ws.
func (m *Module[T]) renderForm(w http.ResponseWriter, r *http.Request, ws *workspace[T], status int, msg string) {
	page := table.FormPage{
		Title:     m.def.Title,
		Base:      m.base(),
		EditingID: ws.surface.EditingID(),
		Fields:    m.formInputs(ws.surface.Draft()),
		Prompt:    ws.surface.Prompting(),
		Error:     msg,
	}
	m.serve(w, r, table.FormView(page), status)
}

func (m *Module[T]) redirectForm(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, m.base()+"/table/form", http.StatusSeeOther)
}

// handleTableEdit opens the edit page on ?id=, or for a new record when no
// id is given. A form with unsaved changes on another record is never
// replaced.
func (m *Module[T]) handleTableEdit(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	id := r.URL.Query().Get("id")
	if ws.surface.IsDirty() {
		if ws.surface.EditingID() == id {
			m.redirectForm(w, r)
			return
		}
		m.render(w, r, ws, http.StatusConflict, msgUnsavedOpen)
		return
	}

	if id == "" {
		ws.surface.OpenAdd(m.def.Defaults)
		m.redirectForm(w, r)
		return
	}
	if err := m.ensureLoaded(r.Context()); err != nil {
		m.render(w, r, ws, http.StatusBadGateway, err.Error())
		return
	}
	var result error
	m.view(r.Context(), ws, func(err error) { result = err }).OnEdit(id)
	switch {
	case result == nil:
		m.redirectForm(w, r)
	case errors.Is(result, collection.ErrNotFound):
		m.render(w, r, ws, http.StatusNotFound, result.Error())
	default:
		m.render(w, r, ws, http.StatusBadGateway, result.Error())
	}
}

// handleTableForm shows the open form, or goes back to the list when none
// is open.
func (m *Module[T]) handleTableForm(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	if !ws.surface.Open() {
		m.redirect(w, r)
		return
	}
	m.renderForm(w, r, ws, http.StatusOK, "")
}

// handleTableFormPost applies the posted inputs and runs the chosen action.
// A failed save shows the form again with the draft and the error.
func (m *Module[T]) handleTableFormPost(w http.ResponseWriter, r *http.Request) {
	ws := m.workspace(Subject(r))
	if !ws.surface.Open() {
		m.render(w, r, ws, http.StatusConflict, editor.ErrNotOpen.Error())
		return
	}
	act := r.PostFormValue("action")
	if act == table.ActionSave || act == table.ActionClose {
		fields, err := m.postedFields(r)
		if err != nil {
			m.renderForm(w, r, ws, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := ws.surface.Patch(fields); err != nil {
			m.renderForm(w, r, ws, http.StatusConflict, err.Error())
			return
		}
	}

	switch act {
	case table.ActionSave:
		id, err := ws.surface.Save(r.Context())
		switch {
		case err == nil:
			m.redirect(w, r)
		case errors.Is(err, collection.ErrFetch):
			m.logger.Warn("refresh after save failed", zap.String("id", id), zap.Error(err))
			m.redirect(w, r)
		case errors.Is(err, collection.ErrValidation):
			m.renderForm(w, r, ws, http.StatusUnprocessableEntity, err.Error())
		default:
			m.renderForm(w, r, ws, http.StatusBadGateway, err.Error())
		}
	case table.ActionClose:
		if ws.surface.RequestClose() {
			m.redirect(w, r)
			return
		}
		m.renderForm(w, r, ws, http.StatusOK, "")
	case table.ActionDiscard:
		ws.surface.Discard()
		m.redirect(w, r)
	case table.ActionKeep:
		ws.surface.KeepEditing()
		m.redirectForm(w, r)
	default:
		m.renderForm(w, r, ws, http.StatusBadRequest, fmt.Sprintf("unknown action %q", act))
	}
}
