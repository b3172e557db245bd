package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/store"
)

// SQLiteResource implements collection.Resource over one SQLite table.
type SQLiteResource[T collection.Record] struct {
	db     *sql.DB
	schema Schema[T]
}

// NewSQLiteResource returns a resource over schema's table and runs its
// migrations.
func NewSQLiteResource[T collection.Record](ctx context.Context, st *store.SQLiteStore, schema Schema[T]) (*SQLiteResource[T], error) {
	if err := st.Migrate(ctx, schema.Table, SQLiteMigrations(schema)); err != nil {
		return nil, fmt.Errorf("%s migrations: %w", schema.Table, err)
	}
	return &SQLiteResource[T]{db: st.DB(), schema: schema}, nil
}

// Name implements collection.Resource.
func (r *SQLiteResource[T]) Name() string { return r.schema.Table }

// List implements collection.Resource.
func (r *SQLiteResource[T]) List(ctx context.Context, orderBy string) ([]T, error) {
	q, err := r.schema.selectSQL(sqliteDialect, orderBy)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var id any
		values := make([]any, len(r.schema.Columns))
		dest := make([]any, len(values)+1)
		dest[0] = &id
		for i := range values {
			dest[i+1] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.schema.Table, err)
		}
		rec, err := r.schema.decode(id, values)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.schema.Table, err)
	}
	return items, nil
}

// Insert implements collection.Resource. The ID is a new UUID.
func (r *SQLiteResource[T]) Insert(ctx context.Context, fields collection.Fields) (T, error) {
	var zero T
	names, values, err := r.schema.Validate(fields, false)
	if err != nil {
		return zero, err
	}

	id := uuid.New().String()
	args := append([]any{id}, values...)
	if _, err := r.db.ExecContext(ctx, r.schema.insertSQL(sqliteDialect, names, true), args...); err != nil {
		return zero, sqliteError("insert "+r.schema.Table, err)
	}
	return r.schema.decode(id, values)
}

// Update implements collection.Resource.
func (r *SQLiteResource[T]) Update(ctx context.Context, id string, fields collection.Fields) error {
	names, values, err := r.schema.Validate(fields, true)
	if err != nil {
		return err
	}

	args := append(values, id)
	res, err := r.db.ExecContext(ctx, r.schema.updateSQL(sqliteDialect, names), args...)
	if err != nil {
		return sqliteError(fmt.Sprintf("update %s %q", r.schema.Table, id), err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements collection.Resource.
func (r *SQLiteResource[T]) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.schema.deleteSQL(sqliteDialect), id)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", r.schema.Table, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqliteError maps constraint failures to ErrValidation.
func sqliteError(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%s: %w: %v", op, ErrValidation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// SQLiteMigrations returns the DDL that creates schema's table.
func SQLiteMigrations[T collection.Record](schema Schema[T]) []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create " + schema.Table + " table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(sqliteDDL(schema))
				return err
			},
		},
	}
}

func sqliteDDL[T collection.Record](schema Schema[T]) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE " + schema.Table + " (\n\tid TEXT PRIMARY KEY")
	for _, c := range schema.Columns {
		b.WriteString(",\n\t" + quote(c.Name) + " ")
		switch c.Kind {
		case Int:
			b.WriteString("INTEGER NOT NULL DEFAULT 0")
		case JSON:
			b.WriteString("TEXT NOT NULL DEFAULT '[]'")
		default:
			b.WriteString("TEXT NOT NULL DEFAULT ''")
		}
	}
	b.WriteString("\n)")
	return b.String()
}
