package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HerbHall/atelier/internal/collection"
)

// PostgresResource implements collection.Resource over one Postgres table.
// IDs are generated by the database.
type PostgresResource[T collection.Record] struct {
	pool   *pgxpool.Pool
	schema Schema[T]
}

// NewPostgresResource returns a resource over schema's table, creating the
// table when it does not exist.
func NewPostgresResource[T collection.Record](ctx context.Context, pool *pgxpool.Pool, schema Schema[T]) (*PostgresResource[T], error) {
	if _, err := pool.Exec(ctx, PostgresDDL(schema)); err != nil {
		return nil, fmt.Errorf("create %s table: %w", schema.Table, err)
	}
	return &PostgresResource[T]{pool: pool, schema: schema}, nil
}

// Name implements collection.Resource.
func (r *PostgresResource[T]) Name() string { return r.schema.Table }

// List implements collection.Resource.
func (r *PostgresResource[T]) List(ctx context.Context, orderBy string) ([]T, error) {
	q, err := r.schema.selectSQL(postgresDialect, orderBy)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.schema.Table, err)
		}
		rec, err := r.schema.decode(vals[0], vals[1:])
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

// Insert implements collection.Resource.
func (r *PostgresResource[T]) Insert(ctx context.Context, fields collection.Fields) (T, error) {
	var zero T
	names, values, err := r.schema.Validate(fields, false)
	if err != nil {
		return zero, err
	}

	q := r.schema.insertSQL(postgresDialect, names, false) + " RETURNING " + r.schema.selectList(postgresDialect)
	rows, err := r.pool.Query(ctx, q, values...)
	if err != nil {
		return zero, pgError("insert "+r.schema.Table, err)
	}
	vals, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) ([]any, error) {
		return row.Values()
	})
	if err != nil {
		return zero, pgError("insert "+r.schema.Table, err)
	}
	return r.schema.decode(vals[0], vals[1:])
}

// Update implements collection.Resource.
func (r *PostgresResource[T]) Update(ctx context.Context, id string, fields collection.Fields) error {
	names, values, err := r.schema.Validate(fields, true)
	if err != nil {
		return err
	}
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, r.schema.updateSQL(postgresDialect, names), append(values, id)...)
	if err != nil {
		return pgError(fmt.Sprintf("update %s %q", r.schema.Table, id), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements collection.Resource.
func (r *PostgresResource[T]) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, r.schema.deleteSQL(postgresDialect), id)
	if err != nil {
		return pgError(fmt.Sprintf("delete %s %q", r.schema.Table, id), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// pgError maps integrity violations to ErrValidation and a malformed id to
// ErrNotFound.
func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "22P02": // invalid_text_representation, e.g. a non-uuid id
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case strings.HasPrefix(pgErr.Code, "23"): // integrity_constraint_violation
			return fmt.Errorf("%s: %w: %s", op, ErrValidation, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PostgresDDL returns the CREATE TABLE statement for schema.
func PostgresDDL[T collection.Record](schema Schema[T]) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + schema.Table + " (\n\tid uuid PRIMARY KEY DEFAULT gen_random_uuid()")
	for _, c := range schema.Columns {
		b.WriteString(",\n\t" + quote(c.Name) + " ")
		switch c.Kind {
		case Int:
			b.WriteString("integer NOT NULL DEFAULT 0")
		case JSON:
			b.WriteString("jsonb NOT NULL DEFAULT '[]'::jsonb")
		default:
			b.WriteString("text NOT NULL DEFAULT ''")
		}
	}
	b.WriteString("\n)")
	return b.String()
}
