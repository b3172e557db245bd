// Package guard tracks unsaved edits. A Guard compares one form draft with
// the baseline captured when editing began; a Session aggregates dirtiness
// across every editing surface an admin has open and holds navigation
// until they decide to leave or stay.
package guard

import (
	"encoding/json"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/HerbHall/atelier/internal/collection"
)

// Decision is the outcome of a close request.
type Decision int

const (
	// CloseNow means the draft is clean and the surface may close.
	CloseNow Decision = iota
	// Confirm means the draft has unsaved changes and the user must choose
	// between discarding them and keeping on editing.
	Confirm
)

func (d Decision) String() string {
	if d == Confirm {
		return "confirm"
	}
	return "close"
}

// equalOpts treats nil and empty nested slices or maps as equal.
var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

// Guard holds the baseline of one editing surface.
type Guard struct {
	mu      sync.Mutex
	initial collection.Fields
}

// New returns a Guard with an empty baseline.
func New() *Guard {
	return &Guard{initial: collection.Fields{}}
}

// BeginEditing captures a deep copy of initial as the baseline.
func (g *Guard) BeginEditing(initial collection.Fields) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initial = initial.Clone()
	if g.initial == nil {
		g.initial = collection.Fields{}
	}
}

// Baseline returns a copy of the current baseline.
func (g *Guard) Baseline() collection.Fields {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initial.Clone()
}

// IsDirty reports whether draft differs from the baseline in any tracked
// field. Both sides are compared in their JSON form, so an int and the
// float64 decoded from a request body are the same value. A field that is
// blank on both sides (absent, null, "" or an empty list) is unchanged.
func (g *Guard) IsDirty(draft collection.Fields) bool {
	return len(g.Changed(draft)) > 0
}

// Changed returns the fields of draft that differ from the baseline, with
// the same comparison as IsDirty. A baseline field missing from draft is
// returned as nil.
func (g *Guard) Changed(draft collection.Fields) collection.Fields {
	g.mu.Lock()
	initial := canonical(g.initial)
	g.mu.Unlock()
	current := canonical(draft)

	out := collection.Fields{}
	for k, want := range initial {
		if changed(want, current[k]) {
			out[k] = draft[k]
		}
	}
	for k, got := range current {
		if _, tracked := initial[k]; !tracked && changed(nil, got) {
			out[k] = draft[k]
		}
	}
	return out
}

func changed(a, b any) bool {
	if blank(a) && blank(b) {
		return false
	}
	return !cmp.Equal(a, b, equalOpts)
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func canonical(f collection.Fields) map[string]any {
	out := map[string]any{}
	if len(f) == 0 {
		return out
	}
	b, err := json.Marshal(f)
	if err == nil && json.Unmarshal(b, &out) == nil {
		return out
	}
	return map[string]any(f.Clone())
}

// RequestClose decides whether a surface holding draft may close at once.
func (g *Guard) RequestClose(draft collection.Fields) Decision {
	if g.IsDirty(draft) {
		return Confirm
	}
	return CloseNow
}

// Saved installs the just-saved draft as the new baseline.
func (g *Guard) Saved(draft collection.Fields) {
	g.BeginEditing(draft)
}
