package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/atelier/internal/store"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger(t)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	l.Debug("written through t.Log")
}

func TestObservedLogger(t *testing.T) {
	l, logs := ObservedLogger(zapcore.WarnLevel)
	l.Info("below level")
	l.Warn("move not persisted", zap.String("id", "b"))

	if logs.Len() != 1 {
		t.Fatalf("recorded %d entries, want 1", logs.Len())
	}
	if !Logged(logs, "move not persisted") {
		t.Error("warning not recorded")
	}
	if Logged(logs, "below level") {
		t.Error("info entry recorded below the level")
	}
}

func TestNewStore_Usable(t *testing.T) {
	db := NewStore(t)
	if db == nil {
		t.Fatal("expected non-nil store")
	}
	if err := db.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
}

func TestNewStore_AppliesMigrations(t *testing.T) {
	db := NewStore(t,
		Exec(1, `CREATE TABLE services (id TEXT PRIMARY KEY, title TEXT, sort_order INTEGER)`),
		Exec(2, `INSERT INTO services VALUES ('1', 'Residential', 0)`),
	)
	var title string
	if err := db.DB().QueryRow(`SELECT title FROM services WHERE id = '1'`).Scan(&title); err != nil {
		t.Fatalf("query: %v", err)
	}
	if title != "Residential" {
		t.Errorf("title = %q, want Residential", title)
	}
	applied, err := db.Applied(context.Background(), TestModule)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %v, want two versions", applied)
	}
}

func TestNewStoreFile_OnDisk(t *testing.T) {
	db, path := NewStoreFile(t)
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeded.db")
	SeedFile(t, path, `CREATE TABLE stats (id TEXT PRIMARY KEY, label TEXT)`, `INSERT INTO stats VALUES ('1', 'Projects')`)

	db, err := store.New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.DB().QueryRow(`SELECT COUNT(*) FROM stats`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestClock_Advance(t *testing.T) {
	c := NewClock()
	start := c.Now()
	c.Advance(5 * time.Minute)
	if got := c.Now().Sub(start); got != 5*time.Minute {
		t.Errorf("Advance: elapsed = %v, want 5m", got)
	}
}

func TestClock_Set(t *testing.T) {
	c := NewClock()
	target := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("Set: got %v, want %v", c.Now(), target)
	}
}

func TestClock_Ticking(t *testing.T) {
	c := NewClock().Ticking(time.Millisecond)
	first, second := c.Now(), c.Now()
	if !first.Equal(Epoch) {
		t.Errorf("first Now = %v, want %v", first, Epoch)
	}
	if got := second.Sub(first); got != time.Millisecond {
		t.Errorf("tick = %v, want 1ms", got)
	}
}

func TestNewService_Defaults(t *testing.T) {
	s := NewService()
	if s.ID != "" {
		t.Errorf("ID = %q, want empty", s.ID)
	}
	if s.Title != "Interior Design" {
		t.Errorf("Title = %q, want Interior Design", s.Title)
	}
}

func TestNewService_WithOptions(t *testing.T) {
	s := NewService(WithTitle("Build"), WithSortOrder(4))
	if s.Title != "Build" {
		t.Errorf("Title = %q, want Build", s.Title)
	}
	if got := ServiceFields(s)["sort_order"]; got != 4 {
		t.Errorf("ServiceFields sort_order = %v, want 4", got)
	}
}

func TestServices(t *testing.T) {
	got := Services(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[2].ID != "3" || got[2].Title != "C" || got[2].SortOrder != 2 {
		t.Errorf("Services(3)[2] = %+v", got[2])
	}
}
