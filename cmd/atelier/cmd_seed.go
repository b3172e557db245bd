package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/metrics"
	"github.com/HerbHall/atelier/internal/seed"
	"github.com/HerbHall/atelier/internal/site"
)

// seedTarget opens the resource of every collection on b.
func seedTarget(ctx context.Context, b *backend) (seed.Target, error) {
	var t seed.Target
	var err error
	if t.Services, err = resourceFor(ctx, b, site.Services.Schema); err != nil {
		return t, err
	}
	if t.Testimonials, err = resourceFor(ctx, b, site.Testimonials.Schema); err != nil {
		return t, err
	}
	if t.ProcessSteps, err = resourceFor(ctx, b, site.ProcessSteps.Schema); err != nil {
		return t, err
	}
	if t.Stats, err = resourceFor(ctx, b, site.Stats.Schema); err != nil {
		return t, err
	}
	if t.WorkStack, err = resourceFor(ctx, b, site.WorkStack.Schema); err != nil {
		return t, err
	}
	if t.Portfolio, err = resourceFor(ctx, b, site.Portfolio.Schema); err != nil {
		return t, err
	}
	if t.Gallery, err = resourceFor(ctx, b, site.Gallery.Schema); err != nil {
		return t, err
	}
	if t.Contacts, err = b.contacts(ctx); err != nil {
		return t, err
	}
	return t, nil
}

func seedBackend(ctx context.Context, cfg *config.Config, path string, replace bool, logger *zap.Logger) (seed.Result, error) {
	f, err := seed.Load(path)
	if err != nil {
		return seed.Result{}, err
	}
	b, err := openBackend(ctx, cfg, metrics.NewRecorder(nil), logger)
	if err != nil {
		return seed.Result{}, err
	}
	defer b.Close()

	t, err := seedTarget(ctx, b)
	if err != nil {
		return seed.Result{}, err
	}
	return seed.Run(ctx, f, t, replace)
}

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "seed.yaml", "seed document to load")
	configPath := fs.String("config", "", "path to configuration file")
	replace := fs.Bool("replace", false, "delete existing records before inserting")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.GetString("backend.driver") == driverMemory {
		fmt.Fprintln(os.Stderr, "seed: the memory driver keeps nothing after exit")
	}

	res, err := seedBackend(context.Background(), cfg, *file, *replace, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	tables := make([]string, 0, len(res.Inserted))
	for name := range res.Inserted {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Printf("%-20s %d inserted, %d removed\n", name, res.Inserted[name], res.Removed[name])
	}
	if res.Contact {
		fmt.Println("contact_info         updated")
	}
}
