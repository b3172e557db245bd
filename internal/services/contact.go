package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HerbHall/atelier/internal/store"
	"github.com/HerbHall/atelier/pkg/models"
)

// ContactRowID is the primary key of the only contact_info row.
const ContactRowID = 1

// ContactRepository provides access to the studio contact details.
type ContactRepository interface {
	// Get returns the contact details, or ErrNotFound before the first Upsert.
	Get(ctx context.Context) (*models.ContactInfo, error)

	// Upsert creates or replaces the contact details.
	Upsert(ctx context.Context, info models.ContactInfo) (*models.ContactInfo, error)
}

// ValidateContact checks the fields an admin may enter.
func ValidateContact(info models.ContactInfo) error {
	errs := getValidator().ValidateMap(map[string]any{
		"email":          info.Email,
		"whatsapp_link":  info.WhatsappLink,
		"maps_embed_url": info.MapsEmbedURL,
		"maps_link":      info.MapsLink,
	}, map[string]any{
		"email":          "omitempty,email",
		"whatsapp_link":  "omitempty,url",
		"maps_embed_url": "omitempty,url",
		"maps_link":      "omitempty,url",
	})
	if len(errs) > 0 {
		return validationError("contact_info", errs)
	}
	return nil
}

// Compile-time interface guards.
var (
	_ ContactRepository = (*SQLiteContactRepository)(nil)
	_ ContactRepository = (*PostgresContactRepository)(nil)
)

const contactColumns = `address, email, phone, whatsapp_link, maps_embed_url, maps_link, business_hours, location_label, updated_at`

// SQLiteContactRepository implements ContactRepository using SQLite.
type SQLiteContactRepository struct {
	db *sql.DB
}

// NewSQLiteContactRepository creates a ContactRepository and runs the
// contact_info migration.
func NewSQLiteContactRepository(ctx context.Context, st *store.SQLiteStore) (*SQLiteContactRepository, error) {
	if err := st.Migrate(ctx, "contact_info", contactMigrations); err != nil {
		return nil, fmt.Errorf("contact_info migrations: %w", err)
	}
	return &SQLiteContactRepository{db: st.DB()}, nil
}

func (r *SQLiteContactRepository) Get(ctx context.Context) (*models.ContactInfo, error) {
	var c models.ContactInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contact_info WHERE id = ?`, ContactRowID,
	).Scan(&c.Address, &c.Email, &c.Phone, &c.WhatsappLink, &c.MapsEmbedURL, &c.MapsLink,
		&c.BusinessHours, &c.LocationLabel, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contact info: %w", err)
	}
	return &c, nil
}

func (r *SQLiteContactRepository) Upsert(ctx context.Context, info models.ContactInfo) (*models.ContactInfo, error) {
	if err := ValidateContact(info); err != nil {
		return nil, err
	}
	info.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_info (id, `+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			address = excluded.address,
			email = excluded.email,
			phone = excluded.phone,
			whatsapp_link = excluded.whatsapp_link,
			maps_embed_url = excluded.maps_embed_url,
			maps_link = excluded.maps_link,
			business_hours = excluded.business_hours,
			location_label = excluded.location_label,
			updated_at = excluded.updated_at`,
		ContactRowID, info.Address, info.Email, info.Phone, info.WhatsappLink, info.MapsEmbedURL,
		info.MapsLink, info.BusinessHours, info.LocationLabel, info.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert contact info: %w", err)
	}
	return &info, nil
}

// contactMigrations defines the database schema for contact_info.
var contactMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create contact_info table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE contact_info (
					id             INTEGER PRIMARY KEY CHECK (id = 1),
					address        TEXT NOT NULL DEFAULT '',
					email          TEXT NOT NULL DEFAULT '',
					phone          TEXT NOT NULL DEFAULT '',
					whatsapp_link  TEXT NOT NULL DEFAULT '',
					maps_embed_url TEXT NOT NULL DEFAULT '',
					maps_link      TEXT NOT NULL DEFAULT '',
					business_hours TEXT NOT NULL DEFAULT '',
					location_label TEXT NOT NULL DEFAULT '',
					updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}

// PostgresContactRepository implements ContactRepository using Postgres.
type PostgresContactRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresContactRepository creates the contact_info table when missing.
func NewPostgresContactRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresContactRepository, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contact_info (
			id             integer PRIMARY KEY CHECK (id = 1),
			address        text NOT NULL DEFAULT '',
			email          text NOT NULL DEFAULT '',
			phone          text NOT NULL DEFAULT '',
			whatsapp_link  text NOT NULL DEFAULT '',
			maps_embed_url text NOT NULL DEFAULT '',
			maps_link      text NOT NULL DEFAULT '',
			business_hours text NOT NULL DEFAULT '',
			location_label text NOT NULL DEFAULT '',
			updated_at     timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, fmt.Errorf("create contact_info table: %w", err)
	}
	return &PostgresContactRepository{pool: pool}, nil
}

func (r *PostgresContactRepository) Get(ctx context.Context) (*models.ContactInfo, error) {
	var c models.ContactInfo
	err := r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contact_info WHERE id = $1`, ContactRowID,
	).Scan(&c.Address, &c.Email, &c.Phone, &c.WhatsappLink, &c.MapsEmbedURL, &c.MapsLink,
		&c.BusinessHours, &c.LocationLabel, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contact info: %w", err)
	}
	return &c, nil
}

func (r *PostgresContactRepository) Upsert(ctx context.Context, info models.ContactInfo) (*models.ContactInfo, error) {
	if err := ValidateContact(info); err != nil {
		return nil, err
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contact_info (id, address, email, phone, whatsapp_link, maps_embed_url, maps_link, business_hours, location_label, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			whatsapp_link = EXCLUDED.whatsapp_link,
			maps_embed_url = EXCLUDED.maps_embed_url,
			maps_link = EXCLUDED.maps_link,
			business_hours = EXCLUDED.business_hours,
			location_label = EXCLUDED.location_label,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		ContactRowID, info.Address, info.Email, info.Phone, info.WhatsappLink, info.MapsEmbedURL,
		info.MapsLink, info.BusinessHours, info.LocationLabel,
	).Scan(&info.UpdatedAt)
	if err != nil {
		return nil, pgError("upsert contact info", err)
	}
	return &info, nil
}
