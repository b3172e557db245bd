package table

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

// Page is a full table page: heading, table and delete dialog. Base is the
// URL prefix of the collection's routes.
type Page struct {
	Title  string
	Base   string
	Model  Model
	Dialog DialogModel
	Notice string
	// CanAdd shows the button that opens the form for a new record.
	CanAdd bool
}

// Render writes p as an HTML document.
func Render(w io.Writer, p Page) error {
	if err := PageView(p).Render(context.Background(), w); err != nil {
		return fmt.Errorf("render table %q: %w", p.Title, err)
	}
	return nil
}

// markup writes to w and keeps the first error.
type markup struct {
	w   io.Writer
	err error
}

func (m *markup) raw(s string) {
	if m.err == nil {
		_, m.err = io.WriteString(m.w, s)
	}
}

func (m *markup) text(s string) { m.raw(templ.EscapeString(s)) }

func (m *markup) child(ctx context.Context, c templ.Component) {
	if m.err == nil {
		m.err = c.Render(ctx, m.w)
	}
}

// attrIf writes attr when cond holds.
func (m *markup) attrIf(cond bool, attr string) {
	if cond {
		m.raw(attr)
	}
}

// action is a form action URL under base with escaped query values.
func action(base, path string, query ...string) string {
	s := base + path
	for i := 0; i+1 < len(query); i += 2 {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		s += sep + query[i] + "=" + url.QueryEscape(query[i+1])
	}
	return templ.EscapeString(s)
}

const pageStyle = `<style>
@media (max-width: 768px) { .narrow-hide { display: none; } }
button[disabled] { opacity: .4; cursor: not-allowed; }
.dialog { border: 1px solid #ccc; padding: 1rem; }
.error { color: #b91c1c; }
label { display: block; margin-top: .75rem; }
</style>
`

// document wraps body in the dashboard's HTML shell.
func document(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}
		m.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		m.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n<title>")
		m.text(title)
		m.raw("</title>\n")
		m.raw(pageStyle)
		m.raw("</head>\n<body>\n<h1>")
		m.text(title)
		m.raw("</h1>\n")
		m.child(ctx, body)
		m.raw("</body>\n</html>\n")
		return m.err
	})
}

func notice(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if msg == "" {
			return nil
		}
		m := &markup{w: w}
		m.raw(`<p class="error" role="alert">`)
		m.text(msg)
		m.raw("</p>\n")
		return m.err
	})
}

// PageView returns the list page as a component.
func PageView(p Page) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}
		m.child(ctx, notice(p.Notice))
		if p.CanAdd {
			m.raw(`<form method="post" action="` + action(p.Base, "/table/edit") + `"><button type="submit">Add</button></form>` + "\n")
		}
		m.child(ctx, tableView(p))
		if p.Dialog.Open {
			m.child(ctx, dialogView(p.Base, p.Dialog))
		}
		return m.err
	})
	return document(p.Title, body)
}

func tableView(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}
		m.raw("<table>\n<thead>\n<tr>")
		if p.Model.ShowReorder {
			m.raw("<th>Order</th>")
		}
		for _, h := range p.Model.Headers {
			m.raw("<th")
			m.attrIf(h.HideNarrow, ` class="narrow-hide"`)
			m.raw(">")
			m.text(h.Label)
			m.raw("</th>")
		}
		if p.Model.ShowActions {
			m.raw("<th>Actions</th>")
		}
		m.raw("</tr>\n</thead>\n<tbody>\n")
		if p.Model.Empty {
			m.raw(`<tr><td colspan="` + strconv.Itoa(p.Model.ColSpan) + `" class="empty">`)
			m.text(p.Model.EmptyText)
			m.raw("</td></tr>\n")
		}
		for _, row := range p.Model.Rows {
			m.child(ctx, rowView(p.Base, row, p.Dialog))
		}
		m.raw("</tbody>\n</table>\n")
		return m.err
	})
}

func rowView(base string, row Row, dialog DialogModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := &markup{w: w}
		m.raw(`<tr data-id="`)
		m.text(row.ID)
		m.raw(`">`)
		if row.ShowReorder {
			m.raw("\n<td>\n")
			m.raw(`<form method="post" action="` + action(base, "/table/move", "id", row.ID, "dir", "up") + `"><button type="submit" aria-label="Move up"`)
			m.attrIf(!row.CanMoveUp, " disabled")
			m.raw(">&uarr;</button></form>\n")
			m.raw(`<form method="post" action="` + action(base, "/table/move", "id", row.ID, "dir", "down") + `"><button type="submit" aria-label="Move down"`)
			m.attrIf(!row.CanMoveDown, " disabled")
			m.raw(">&darr;</button></form>\n</td>")
		}
		for _, c := range row.Cells {
			m.raw("<td")
			m.attrIf(c.HideNarrow, ` class="narrow-hide"`)
			m.raw(">")
			m.text(c.Text)
			m.raw("</td>")
		}
		if row.ShowEdit || row.ShowDelete {
			m.raw("\n<td>")
			if row.ShowEdit {
				m.raw(`<form method="post" action="` + action(base, "/table/edit", "id", row.ID) + `"><button type="submit">Edit</button></form>`)
			}
			if row.ShowDelete {
				m.raw("\n" + `<form method="post" action="` + action(base, "/table/delete", "id", row.ID) + `"><button type="submit"`)
				m.attrIf(dialog.Busy && dialog.Target == row.ID, ` disabled aria-busy="true"`)
				m.raw(">Delete</button></form>")
			}
			m.raw("\n</td>")
		}
		m.raw("\n</tr>\n")
		return m.err
	})
}

func dialogView(base string, d DialogModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := &markup{w: w}
		m.raw(`<div class="dialog" role="alertdialog" aria-labelledby="delete-title">` + "\n")
		m.raw(`<h2 id="delete-title">Delete this item?</h2>` + "\n")
		m.raw("<p>This action cannot be undone.</p>\n")
		if d.Error != "" {
			m.raw(`<p class="error">`)
			m.text(d.Error)
			m.raw("</p>\n")
		}
		m.raw(`<form method="post" action="` + action(base, "/table/delete/confirm") + `"><button type="submit"`)
		m.attrIf(d.Busy, ` disabled aria-busy="true"`)
		m.raw(">")
		if d.Busy {
			m.raw("Deleting…")
		} else {
			m.raw("Delete")
		}
		m.raw("</button></form>\n")
		m.raw(`<form method="post" action="` + action(base, "/table/delete/cancel") + `"><button type="submit"`)
		m.attrIf(d.Busy, " disabled")
		m.raw(">Cancel</button></form>\n</div>\n")
		return m.err
	})
}
