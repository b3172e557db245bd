package table

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/HerbHall/atelier/internal/collection"
)

type testimonial struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Quote     string   `json:"quote"`
	Tags      []string `json:"tags"`
	SortOrder int      `json:"sort_order"`
}

func (r testimonial) RecordID() string     { return r.ID }
func (r testimonial) RecordSortOrder() int { return r.SortOrder }

func rows() []testimonial {
	return []testimonial{
		{ID: "1", Name: "Rina", Quote: "Lovely", Tags: []string{"home", "kitchen"}},
		{ID: "2", Name: "Budi", Quote: ""},
		{ID: "3", Name: "Sari", Quote: "Great"},
	}
}

func fullView() View[testimonial] {
	return View[testimonial]{
		Columns: []Column[testimonial]{
			{Key: "name", Label: "Name"},
			{Key: "quote", Label: "Quote", HideNarrow: true},
			{Key: "tags", Label: "Tags"},
			{Label: "Upper", Render: func(r testimonial) string { return strings.ToUpper(r.Name) }},
		},
		EmptyText: "No testimonials yet.",
		OnEdit:    func(string) {},
		OnDelete:  func(string) {},
		OnReorder: func(int, collection.Direction) {},
	}
}

func TestBuildCells(t *testing.T) {
	m := fullView().Build(rows())

	if got, want := len(m.Rows), 3; got != want {
		t.Fatalf("len(Rows) = %d, want %d", got, want)
	}
	first := m.Rows[0]
	wantCells := []string{"Rina", "Lovely", "home, kitchen", "RINA"}
	for i, want := range wantCells {
		if got := first.Cells[i].Text; got != want {
			t.Errorf("Cells[%d] = %q, want %q", i, got, want)
		}
	}
	if !first.Cells[1].HideNarrow {
		t.Error("quote cell not marked narrow-hidden")
	}
	if got := m.Rows[1].Cells[1].Text; got != Placeholder {
		t.Errorf("empty quote = %q, want %q", got, Placeholder)
	}
	if got := m.Rows[1].Cells[2].Text; got != Placeholder {
		t.Errorf("nil tags = %q, want %q", got, Placeholder)
	}
}

func TestBuildArrows(t *testing.T) {
	m := fullView().Build(rows())

	tests := []struct {
		row      int
		up, down bool
	}{
		{0, false, true},
		{1, true, true},
		{2, true, false},
	}
	for _, tt := range tests {
		r := m.Rows[tt.row]
		if !r.ShowReorder {
			t.Errorf("row %d: arrows hidden, want rendered", tt.row)
		}
		if r.CanMoveUp != tt.up || r.CanMoveDown != tt.down {
			t.Errorf("row %d: up=%v down=%v, want up=%v down=%v", tt.row, r.CanMoveUp, r.CanMoveDown, tt.up, tt.down)
		}
	}
}

func TestBuildPendingDisablesArrows(t *testing.T) {
	m := fullView().BuildPending(rows(), true)
	for i, r := range m.Rows {
		if r.CanMoveUp || r.CanMoveDown {
			t.Errorf("row %d: arrow enabled while pending", i)
		}
	}
}

func TestBuildHooksToggleAffordances(t *testing.T) {
	v := fullView()
	v.OnEdit, v.OnDelete, v.OnReorder = nil, nil, nil
	m := v.Build(rows())

	if m.ShowActions || m.ShowReorder {
		t.Errorf("ShowActions=%v ShowReorder=%v, want both false", m.ShowActions, m.ShowReorder)
	}
	if m.ColSpan != 4 {
		t.Errorf("ColSpan = %d, want 4", m.ColSpan)
	}
	r := m.Rows[0]
	if r.ShowEdit || r.ShowDelete || r.ShowReorder || r.CanMoveDown {
		t.Errorf("row affordances = %+v, want none", r)
	}
}

func TestBuildEmpty(t *testing.T) {
	m := fullView().Build(nil)

	if !m.Empty {
		t.Fatal("Empty = false")
	}
	if m.ColSpan != 6 {
		t.Errorf("ColSpan = %d, want 6", m.ColSpan)
	}

	var buf bytes.Buffer
	if err := Render(&buf, Page{Title: "Testimonials", Base: "/api/v1/testimonials", Model: m}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `<td colspan="6" class="empty">No testimonials yet.</td>`) {
		t.Errorf("empty placeholder row missing:\n%s", out)
	}
	if strings.Count(out, "<tr") != 2 {
		t.Errorf("want header row plus one placeholder row, got:\n%s", out)
	}
}

func TestRenderRows(t *testing.T) {
	m := fullView().Build(rows())
	var buf bytes.Buffer
	if err := Render(&buf, Page{Title: "Testimonials", Base: "/api/v1/testimonials", Model: m}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	if got := strings.Count(out, " disabled>"); got != 2 {
		t.Errorf("disabled controls = %d, want 2 (first up, last down)", got)
	}
	if !strings.Contains(out, `class="narrow-hide"`) {
		t.Error("narrow column not marked")
	}
	if strings.Contains(out, "alertdialog") {
		t.Error("dialog rendered while closed")
	}
}

func TestRenderEscapes(t *testing.T) {
	v := View[testimonial]{Columns: []Column[testimonial]{{Key: "quote", Label: "Quote"}}}
	m := v.Build([]testimonial{{ID: "1", Quote: "<script>alert(1)</script>"}})

	var buf bytes.Buffer
	if err := Render(&buf, Page{Title: "T", Model: m}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("cell text not escaped")
	}
}

func TestRenderDialog(t *testing.T) {
	var d DeleteDialog
	d.Request("3")
	var buf bytes.Buffer
	err := Render(&buf, Page{Title: "T", Base: "/b", Model: fullView().Build(rows()), Dialog: d.Model()})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "cannot be undone") {
		t.Error("irreversibility warning missing")
	}
	if !strings.Contains(out, `action="/b/table/delete/confirm"`) {
		t.Errorf("confirm form missing:\n%s", out)
	}
}

func TestDeleteDialogGate(t *testing.T) {
	var d DeleteDialog
	calls := 0
	del := func(_ context.Context, id string) error {
		calls++
		if id != "3" {
			t.Errorf("del(%q), want 3", id)
		}
		return nil
	}

	if err := d.Confirm(context.Background(), del); !errors.Is(err, ErrNoTarget) {
		t.Errorf("Confirm before Request = %v, want ErrNoTarget", err)
	}
	if calls != 0 {
		t.Fatalf("del called %d times before confirmation", calls)
	}

	d.Request("3")
	if !d.Open() || d.Target() != "3" {
		t.Fatalf("Open()=%v Target()=%q after Request", d.Open(), d.Target())
	}
	if calls != 0 {
		t.Fatal("Request alone deleted")
	}
	d.Cancel()
	if d.Open() {
		t.Error("dialog open after Cancel")
	}
	if err := d.Confirm(context.Background(), del); !errors.Is(err, ErrNoTarget) {
		t.Errorf("Confirm after Cancel = %v, want ErrNoTarget", err)
	}

	d.Request("3")
	if err := d.Confirm(context.Background(), del); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if calls != 1 {
		t.Errorf("del called %d times, want 1", calls)
	}
	if d.Open() || d.Busy() {
		t.Error("dialog still open or busy after successful delete")
	}
}

func TestDeleteDialogBusy(t *testing.T) {
	var d DeleteDialog
	d.Request("3")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- d.Confirm(context.Background(), func(context.Context, string) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if !d.Busy() {
		t.Error("Busy() = false during delete")
	}
	if err := d.Confirm(context.Background(), func(context.Context, string) error {
		t.Error("re-entrant confirm reached del")
		return nil
	}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Confirm = %v, want ErrBusy", err)
	}
	d.Cancel()
	if !d.Open() {
		t.Error("Cancel closed the dialog while busy")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func TestDeleteDialogFailure(t *testing.T) {
	var d DeleteDialog
	d.Request("3")
	boom := errors.New("network down")

	err := d.Confirm(context.Background(), func(context.Context, string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Confirm = %v, want %v", err, boom)
	}
	if !d.Open() || d.Busy() {
		t.Errorf("Open()=%v Busy()=%v, want open and re-enabled", d.Open(), d.Busy())
	}
	if !errors.Is(d.Err(), boom) {
		t.Errorf("Err() = %v", d.Err())
	}
	if got := d.Model().Error; got != "network down" {
		t.Errorf("Model().Error = %q", got)
	}

	if err := d.Confirm(context.Background(), func(context.Context, string) error { return nil }); err != nil {
		t.Errorf("retry Confirm = %v", err)
	}
	if d.Err() != nil {
		t.Error("Err not cleared after success")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(3), "3"},
		{1.5, "1.5"},
		{true, "yes"},
		{[]any{"a", "", "b"}, "a, b"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderAddButton(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Page{Title: "T", Base: "/b", Model: fullView().Build(rows()), CanAdd: true}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `action="/b/table/edit"><button type="submit">Add</button>`) {
		t.Errorf("add button missing:\n%s", buf.String())
	}
}

func TestRenderForm(t *testing.T) {
	f := FormPage{
		Title:     "Services",
		Base:      "/b",
		EditingID: "2",
		Fields: []Field{
			{Name: "title", Label: "Title", Value: `Kitchen "plus"`},
			{Name: "tags", Label: "Tags", Value: "residential\nkitchen", Multiline: true},
		},
	}
	var buf bytes.Buffer
	if err := RenderForm(&buf, f); err != nil {
		t.Fatalf("RenderForm: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<h1>Edit Services</h1>",
		`action="/b/table/form"`,
		`name="title" value="Kitchen &#34;plus&#34;"`,
		"residential\nkitchen</textarea>",
		`value="save">Save</button>`,
		`value="close">Close</button>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("form missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Discard unsaved changes?") {
		t.Error("prompt shown without unsaved changes")
	}
}

func TestRenderFormPrompt(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderForm(&buf, FormPage{Title: "Services", Base: "/b", Prompt: true, Error: "<b>x</b>"}); err != nil {
		t.Fatalf("RenderForm: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<h1>Add Services</h1>") {
		t.Error("new record heading missing")
	}
	if !strings.Contains(out, `value="discard">Discard</button>`) || !strings.Contains(out, `value="keep">Keep editing</button>`) {
		t.Errorf("prompt choices missing:\n%s", out)
	}
	if strings.Contains(out, `value="save"`) {
		t.Error("save offered while prompting")
	}
	if strings.Contains(out, "<b>x</b>") {
		t.Error("error not escaped")
	}
}
