// Package seed loads starter content for a fresh site from YAML.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/internal/site"
	"github.com/HerbHall/atelier/pkg/models"
)

// File is the top-level structure of a seed document. Records are listed in
// display order; their sort_order values are ignored.
type File struct {
	Services     []models.Service          `yaml:"services"`
	Testimonials []models.Testimonial      `yaml:"testimonials"`
	ProcessSteps []models.ProcessStep      `yaml:"process_steps"`
	Stats        []models.Stat             `yaml:"stats"`
	WorkStack    []models.WorkStackProject `yaml:"workstack"`
	Portfolio    []models.PortfolioProject `yaml:"portfolio"`
	Gallery      []models.GalleryItem      `yaml:"gallery"`
	Contact      *models.ContactInfo       `yaml:"contact"`
}

// Load parses the seed document at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// Result counts what Apply wrote per collection.
type Result struct {
	Inserted map[string]int
	Removed  map[string]int
	Contact  bool
}

// Apply inserts records into res. With replace set, existing records are
// deleted first; otherwise new records follow the existing ones.
func Apply[T collection.Record](ctx context.Context, res collection.Resource[T], records []T, replace bool) (inserted, removed int, err error) {
	existing, err := res.List(ctx, "sort_order")
	if err != nil {
		return 0, 0, fmt.Errorf("list %s: %w", res.Name(), err)
	}
	offset := len(existing)
	if replace {
		for _, rec := range existing {
			if err := res.Delete(ctx, rec.RecordID()); err != nil {
				return 0, removed, fmt.Errorf("delete %s %s: %w", res.Name(), rec.RecordID(), err)
			}
			removed++
		}
		offset = 0
	}
	for i, rec := range records {
		fields := site.Editable(rec)
		fields["sort_order"] = offset + i
		if _, err := res.Insert(ctx, fields); err != nil {
			return inserted, removed, fmt.Errorf("insert %s #%d: %w", res.Name(), i, err)
		}
		inserted++
	}
	return inserted, removed, nil
}

// Target resolves the resource of each collection.
type Target struct {
	Services     collection.Resource[models.Service]
	Testimonials collection.Resource[models.Testimonial]
	ProcessSteps collection.Resource[models.ProcessStep]
	Stats        collection.Resource[models.Stat]
	WorkStack    collection.Resource[models.WorkStackProject]
	Portfolio    collection.Resource[models.PortfolioProject]
	Gallery      collection.Resource[models.GalleryItem]
	Contacts     services.ContactRepository
}

func count[T collection.Record](ctx context.Context, r *Result, res collection.Resource[T], records []T, replace bool) error {
	if res == nil || (len(records) == 0 && !replace) {
		return nil
	}
	ins, rem, err := Apply(ctx, res, records, replace)
	r.Inserted[res.Name()] += ins
	r.Removed[res.Name()] += rem
	return err
}

// Run applies every section of f to t. Sections left out of the document
// are skipped unless replace is set, which empties them.
func Run(ctx context.Context, f *File, t Target, replace bool) (Result, error) {
	r := Result{Inserted: map[string]int{}, Removed: map[string]int{}}
	steps := []func() error{
		func() error { return count(ctx, &r, t.Services, f.Services, replace) },
		func() error { return count(ctx, &r, t.Testimonials, f.Testimonials, replace) },
		func() error { return count(ctx, &r, t.ProcessSteps, f.ProcessSteps, replace) },
		func() error { return count(ctx, &r, t.Stats, f.Stats, replace) },
		func() error { return count(ctx, &r, t.WorkStack, f.WorkStack, replace) },
		func() error { return count(ctx, &r, t.Portfolio, f.Portfolio, replace) },
		func() error { return count(ctx, &r, t.Gallery, f.Gallery, replace) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return r, err
		}
	}
	if f.Contact != nil && t.Contacts != nil {
		if err := services.ValidateContact(*f.Contact); err != nil {
			return r, err
		}
		if _, err := t.Contacts.Upsert(ctx, *f.Contact); err != nil {
			return r, fmt.Errorf("upsert contact: %w", err)
		}
		r.Contact = true
	}
	return r, nil
}
