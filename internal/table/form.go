package table

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Form actions posted by the edit page.
const (
	ActionSave    = "save"
	ActionClose   = "close"
	ActionDiscard = "discard"
	ActionKeep    = "keep"
)

// Field is one input of the edit page.
type Field struct {
	Name  string
	Label string
	Value string
	// Multiline renders a textarea; list values are one item per line.
	Multiline bool
}

// FormPage is the edit page for one record. Base is the URL prefix of the
// collection's routes; an empty EditingID means a new record.
type FormPage struct {
	Title     string
	Base      string
	EditingID string
	Fields    []Field
	// Prompt shows the discard-or-keep choice for unsaved changes.
	Prompt bool
	Error  string
}

// RenderForm writes f as an HTML document.
func RenderForm(w io.Writer, f FormPage) error {
	if err := FormView(f).Render(context.Background(), w); err != nil {
		return fmt.Errorf("render form %q: %w", f.Title, err)
	}
	return nil
}

// FormView returns the edit page as a component.
func FormView(f FormPage) templ.Component {
	heading := "Add " + f.Title
	if f.EditingID != "" {
		heading = "Edit " + f.Title
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}
		m.child(ctx, notice(f.Error))
		m.raw(`<form method="post" action="` + action(f.Base, "/table/form") + `">` + "\n")
		for _, fd := range f.Fields {
			m.child(ctx, fieldView(fd))
		}
		if f.Prompt {
			m.raw(`<div class="dialog" role="alertdialog" aria-labelledby="unsaved-title">` + "\n")
			m.raw(`<h2 id="unsaved-title">Discard unsaved changes?</h2>` + "\n")
			m.raw(`<button type="submit" name="action" value="` + ActionDiscard + `">Discard</button>` + "\n")
			m.raw(`<button type="submit" name="action" value="` + ActionKeep + `">Keep editing</button>` + "\n")
			m.raw("</div>\n")
		} else {
			m.raw(`<button type="submit" name="action" value="` + ActionSave + `">Save</button>` + "\n")
			m.raw(`<button type="submit" name="action" value="` + ActionClose + `">Close</button>` + "\n")
		}
		m.raw("</form>\n")
		return m.err
	})
	return document(heading, body)
}

func fieldView(fd Field) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := &markup{w: w}
		id := "field-" + templ.EscapeString(fd.Name)
		m.raw(`<label for="` + id + `">`)
		m.text(fd.Label)
		m.raw("</label>\n")
		if fd.Multiline {
			m.raw(`<textarea id="` + id + `" name="` + templ.EscapeString(fd.Name) + `" rows="4">`)
			m.text(fd.Value)
			m.raw("</textarea>\n")
			return m.err
		}
		m.raw(`<input id="` + id + `" name="` + templ.EscapeString(fd.Name) + `" value="`)
		m.text(fd.Value)
		m.raw(`">` + "\n")
		return m.err
	})
}
