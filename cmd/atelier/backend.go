package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/hosted"
	"github.com/HerbHall/atelier/internal/media"
	"github.com/HerbHall/atelier/internal/metrics"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/internal/store"
)

// Backend drivers.
const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverHosted   = "hosted"
	driverMemory   = "memory"
)

// backend is the open connection behind every collection.
type backend struct {
	driver  string
	sqlite  *store.SQLiteStore
	pool    *pgxpool.Pool
	hosted  *hosted.Client
	metrics *metrics.Recorder
}

func openBackend(ctx context.Context, cfg *config.Config, rec *metrics.Recorder, logger *zap.Logger) (*backend, error) {
	b := &backend{driver: cfg.GetString("backend.driver"), metrics: rec}
	switch b.driver {
	case driverSQLite:
		st, err := store.New(cfg.GetString("backend.sqlite.path"))
		if err != nil {
			return nil, err
		}
		b.sqlite = st
	case driverMemory:
		st, err := store.New(":memory:")
		if err != nil {
			return nil, err
		}
		b.sqlite = st
	case driverPostgres:
		pool, err := pgxpool.New(ctx, cfg.GetString("backend.postgres.dsn"))
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		b.pool = pool
	case driverHosted:
		c, err := hosted.New(cfg.GetString("backend.hosted.url"), cfg.GetString("backend.hosted.key"),
			hosted.WithHTTPClient(&http.Client{Timeout: cfg.GetDuration("backend.hosted.timeout")}),
			hosted.WithLogger(logger.Named("hosted")),
		)
		if err != nil {
			return nil, err
		}
		b.hosted = c
	default:
		return nil, fmt.Errorf("unknown backend driver %q", b.driver)
	}
	logger.Info("backend opened", zap.String("driver", b.driver))
	return b, nil
}

func (b *backend) Close() {
	if b.sqlite != nil {
		_ = b.sqlite.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// resourceFor returns the instrumented resource over schema's table.
func resourceFor[T collection.Record](ctx context.Context, b *backend, schema services.Schema[T]) (collection.Resource[T], error) {
	var res collection.Resource[T]
	switch b.driver {
	case driverSQLite:
		r, err := services.NewSQLiteResource(ctx, b.sqlite, schema)
		if err != nil {
			return nil, err
		}
		res = r
	case driverPostgres:
		r, err := services.NewPostgresResource(ctx, b.pool, schema)
		if err != nil {
			return nil, err
		}
		res = r
	case driverHosted:
		res = hosted.NewResource[T](b.hosted, schema.Table)
	case driverMemory:
		res = collection.NewMemoryResource[T](schema.Table)
	default:
		return nil, fmt.Errorf("unknown backend driver %q", b.driver)
	}
	return metrics.Instrument(res, b.metrics), nil
}

// contacts returns the contact repository. The memory driver keeps contacts
// in its in-memory SQLite database.
func (b *backend) contacts(ctx context.Context) (services.ContactRepository, error) {
	switch b.driver {
	case driverSQLite, driverMemory:
		repo, err := services.NewSQLiteContactRepository(ctx, b.sqlite)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case driverPostgres:
		repo, err := services.NewPostgresContactRepository(ctx, b.pool)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case driverHosted:
		return hosted.NewContactRepository(b.hosted), nil
	}
	return nil, fmt.Errorf("unknown backend driver %q", b.driver)
}

// bucket returns the image bucket and, for local storage, the handler that
// serves it.
func (b *backend) bucket(cfg *config.Config) (media.Bucket, http.Handler, error) {
	if b.driver == driverHosted {
		return hosted.NewBucket(b.hosted, cfg.GetString("media.bucket")), nil, nil
	}
	lb, err := media.NewLocalBucket(cfg.GetString("media.dir"), cfg.GetString("media.public_url"))
	if err != nil {
		return nil, nil, err
	}
	return lb, lb.Handler(), nil
}
