package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/HerbHall/atelier/internal/store"
)

// TestModule owns the migrations applied by NewStore.
const TestModule = "testutil"

// NewStore opens a private in-memory database, applies migrations under
// TestModule and closes the store when the test ends.
func NewStore(t testing.TB, migrations ...store.Migration) *store.SQLiteStore {
	t.Helper()
	return openStore(t, ":memory:", migrations)
}

// NewStoreFile is NewStore on a file in t.TempDir(), for code that opens the
// database by path. It returns the store and the path.
func NewStoreFile(t testing.TB, migrations ...store.Migration) (*store.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atelier.db")
	return openStore(t, path, migrations), path
}

func openStore(t testing.TB, path string, migrations []store.Migration) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(path)
	if err != nil {
		t.Fatalf("testutil: open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if len(migrations) > 0 {
		if err := db.Migrate(context.Background(), TestModule, migrations); err != nil {
			t.Fatalf("testutil: migrate: %v", err)
		}
	}
	return db
}

// Exec returns a migration that runs stmts in order.
func Exec(version int, stmts ...string) store.Migration {
	return store.Migration{
		Version:     version,
		Description: "test fixture",
		Up: func(tx *sql.Tx) error {
			for _, s := range stmts {
				if _, err := tx.Exec(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// SeedFile creates the database at path, runs stmts against it and closes
// it again so the file is complete on disk.
func SeedFile(t testing.TB, path string, stmts ...string) {
	t.Helper()
	db, err := store.New(path)
	if err != nil {
		t.Fatalf("testutil: open %s: %v", path, err)
	}
	defer db.Close()
	for _, s := range stmts {
		if _, err := db.DB().Exec(s); err != nil {
			t.Fatalf("testutil: seed %s: %v", path, err)
		}
	}
}
