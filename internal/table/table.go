// Package table builds the admin list view of a collection. A View is a
// stateless description of columns and affordances; Build turns the rows it
// is handed into a Model that Render writes as HTML. Ordering state lives in
// collection.Controller and deletion state in DeleteDialog, never here.
package table

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HerbHall/atelier/internal/collection"
)

// Placeholder is shown for a missing or empty cell value.
const Placeholder = "—"

// Column describes one table column.
type Column[T collection.Record] struct {
	// Key is the record field shown when Render is nil.
	Key   string
	Label string
	// Render formats the cell. Optional.
	Render func(T) string
	// HideNarrow hides the column on narrow viewports.
	HideNarrow bool
}

// View is the table definition of one collection. A nil hook hides its
// affordance.
type View[T collection.Record] struct {
	Columns   []Column[T]
	EmptyText string

	OnEdit    func(id string)
	OnDelete  func(id string)
	OnReorder func(index int, dir collection.Direction)
}

// Header is one column heading.
type Header struct {
	Label      string
	HideNarrow bool
}

// Cell is one rendered value.
type Cell struct {
	Text       string
	HideNarrow bool
}

// Row is one rendered record.
type Row struct {
	ID          string
	Index       int
	Cells       []Cell
	ShowReorder bool
	CanMoveUp   bool
	CanMoveDown bool
	ShowEdit    bool
	ShowDelete  bool
}

// Model is everything the renderer needs.
type Model struct {
	Headers     []Header
	Rows        []Row
	Empty       bool
	EmptyText   string
	ColSpan     int
	ShowReorder bool
	ShowActions bool
	Pending     bool
}

// Build renders rows in the order given.
func (v View[T]) Build(rows []T) Model {
	return v.BuildPending(rows, false)
}

// BuildPending is Build for a collection whose reorder may be in flight.
// While pending every arrow is disabled.
func (v View[T]) BuildPending(rows []T, pending bool) Model {
	m := Model{
		Headers:     make([]Header, 0, len(v.Columns)),
		Rows:        make([]Row, 0, len(rows)),
		Empty:       len(rows) == 0,
		EmptyText:   v.EmptyText,
		ShowReorder: v.OnReorder != nil,
		ShowActions: v.OnEdit != nil || v.OnDelete != nil,
		Pending:     pending,
	}
	for _, c := range v.Columns {
		m.Headers = append(m.Headers, Header{Label: c.Label, HideNarrow: c.HideNarrow})
	}
	m.ColSpan = len(v.Columns)
	if m.ShowReorder {
		m.ColSpan++
	}
	if m.ShowActions {
		m.ColSpan++
	}

	last := len(rows) - 1
	for i, rec := range rows {
		row := Row{
			ID:          rec.RecordID(),
			Index:       i,
			Cells:       make([]Cell, 0, len(v.Columns)),
			ShowReorder: m.ShowReorder,
			CanMoveUp:   m.ShowReorder && !pending && i > 0,
			CanMoveDown: m.ShowReorder && !pending && i < last,
			ShowEdit:    v.OnEdit != nil,
			ShowDelete:  v.OnDelete != nil,
		}
		var fields map[string]any
		for _, c := range v.Columns {
			var text string
			if c.Render != nil {
				text = c.Render(rec)
			} else {
				if fields == nil {
					fields = recordFields(rec)
				}
				text = Format(fields[c.Key])
			}
			if strings.TrimSpace(text) == "" {
				text = Placeholder
			}
			row.Cells = append(row.Cells, Cell{Text: text, HideNarrow: c.HideNarrow})
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

func recordFields(rec any) map[string]any {
	out := map[string]any{}
	b, err := json.Marshal(rec)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

// Format renders a decoded field value as cell text.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := Format(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
