package guard

import (
	"testing"

	"github.com/HerbHall/atelier/internal/collection"
)

func TestIsDirty(t *testing.T) {
	base := collection.Fields{
		"title":      "B",
		"bullet_1":   "",
		"sort_order": 1,
		"tags":       []string{"residential"},
	}

	tests := []struct {
		name  string
		draft collection.Fields
		want  bool
	}{
		{"identical", base.Clone(), false},
		{"changed title", collection.Fields{"title": "B2", "bullet_1": "", "sort_order": 1, "tags": []string{"residential"}}, true},
		{"float from json", collection.Fields{"title": "B", "bullet_1": "", "sort_order": float64(1), "tags": []any{"residential"}}, false},
		{"missing blank field", collection.Fields{"title": "B", "sort_order": 1, "tags": []string{"residential"}}, false},
		{"missing tracked field", collection.Fields{"bullet_1": "", "sort_order": 1, "tags": []string{"residential"}}, true},
		{"extra blank field", collection.Fields{"title": "B", "bullet_1": "", "sort_order": 1, "tags": []string{"residential"}, "bullet_2": ""}, false},
		{"extra set field", collection.Fields{"title": "B", "bullet_1": "", "sort_order": 1, "tags": []string{"residential"}, "bullet_2": "x"}, true},
		{"tag appended", collection.Fields{"title": "B", "bullet_1": "", "sort_order": 1, "tags": []string{"residential", "kitchen"}}, true},
	}

	g := New()
	g.BeginEditing(base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.IsDirty(tt.draft); got != tt.want {
				t.Errorf("IsDirty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBeginEditingCopiesBaseline(t *testing.T) {
	base := collection.Fields{"tags": []string{"a"}}
	g := New()
	g.BeginEditing(base)

	base["tags"].([]string)[0] = "mutated"

	if g.IsDirty(collection.Fields{"tags": []string{"a"}}) {
		t.Error("baseline shares memory with caller")
	}
}

func TestEmptyBaseline(t *testing.T) {
	g := New()
	if g.IsDirty(nil) {
		t.Error("IsDirty(nil) on empty baseline = true, want false")
	}
	if !g.IsDirty(collection.Fields{"title": "x"}) {
		t.Error("IsDirty on new value = false, want true")
	}
}

func TestRequestClose(t *testing.T) {
	g := New()
	g.BeginEditing(collection.Fields{"title": "B"})

	if got := g.RequestClose(collection.Fields{"title": "B"}); got != CloseNow {
		t.Errorf("RequestClose(clean) = %v, want %v", got, CloseNow)
	}
	if got := g.RequestClose(collection.Fields{"title": "B2"}); got != Confirm {
		t.Errorf("RequestClose(dirty) = %v, want %v", got, Confirm)
	}
}

func TestSavedRefreshesBaseline(t *testing.T) {
	g := New()
	g.BeginEditing(collection.Fields{"title": "B"})
	draft := collection.Fields{"title": "B2"}

	if !g.IsDirty(draft) {
		t.Fatal("IsDirty before save = false, want true")
	}
	g.Saved(draft)
	if g.IsDirty(draft) {
		t.Error("IsDirty right after save = true, want false")
	}
	if got := g.Baseline()["title"]; got != "B2" {
		t.Errorf("Baseline()[title] = %v, want B2", got)
	}
}

func TestDecisionString(t *testing.T) {
	if CloseNow.String() != "close" || Confirm.String() != "confirm" {
		t.Errorf("Decision strings = %q, %q", CloseNow, Confirm)
	}
}

func TestChanged(t *testing.T) {
	g := New()
	g.BeginEditing(collection.Fields{"title": "B", "sort_order": 1, "summary": "s"})

	got := g.Changed(collection.Fields{"title": "B2", "sort_order": float64(1), "bullet_1": "", "image": "a.jpg"})
	want := collection.Fields{"title": "B2", "summary": nil, "image": "a.jpg"}
	if len(got) != len(want) {
		t.Fatalf("Changed() = %v, want %v", got, want)
	}
	for k, v := range want {
		if gv, ok := got[k]; !ok || gv != v {
			t.Errorf("Changed()[%q] = %v, want %v", k, gv, v)
		}
	}

	if n := len(g.Changed(collection.Fields{"title": "B", "sort_order": 1, "summary": "s"})); n != 0 {
		t.Errorf("Changed() of the baseline has %d fields, want 0", n)
	}
}
