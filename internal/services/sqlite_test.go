package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/internal/testutil"
	"github.com/HerbHall/atelier/pkg/models"
)

func newServicesResource(t *testing.T) *services.SQLiteResource[models.Service] {
	t.Helper()
	st := testutil.NewStore(t)
	res, err := services.NewSQLiteResource(context.Background(), st, services.ServicesSchema)
	if err != nil {
		t.Fatalf("NewSQLiteResource: %v", err)
	}
	return res
}

func TestSQLiteResource_InsertAndList(t *testing.T) {
	res := newServicesResource(t)
	ctx := context.Background()

	for i, title := range []string{"C", "A", "B"} {
		order := map[string]int{"A": 0, "B": 1, "C": 2}[title]
		svc := testutil.NewService(testutil.WithTitle(title), testutil.WithSortOrder(order))
		rec, err := res.Insert(ctx, testutil.ServiceFields(svc))
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if rec.ID == "" {
			t.Error("Insert returned empty ID")
		}
		if rec.Title != title {
			t.Errorf("Insert Title = %q, want %q", rec.Title, title)
		}
	}

	got, err := res.List(ctx, collection.SortOrderField)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List len = %d, want 3", len(got))
	}
	for i, want := range []string{"A", "B", "C"} {
		if got[i].Title != want || got[i].SortOrder != i {
			t.Errorf("List[%d] = %q@%d, want %q@%d", i, got[i].Title, got[i].SortOrder, want, i)
		}
	}
	if got[0].Bullet2 != "3D visualisation" {
		t.Errorf("Bullet2 = %q", got[0].Bullet2)
	}
}

func TestSQLiteResource_ListEmpty(t *testing.T) {
	res := newServicesResource(t)

	got, err := res.List(context.Background(), collection.SortOrderField)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List = %#v, want empty non-nil", got)
	}
}

func TestSQLiteResource_UpdateAndDelete(t *testing.T) {
	res := newServicesResource(t)
	ctx := context.Background()

	rec, err := res.Insert(ctx, testutil.ServiceFields(testutil.NewService()))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := res.Update(ctx, rec.ID, collection.Fields{"title": "Build", "sort_order": float64(5)}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := res.List(ctx, collection.SortOrderField)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got[0].Title != "Build" || got[0].SortOrder != 5 || got[0].Bullet1 != "Concept and moodboard" {
		t.Errorf("after Update = %+v", got[0])
	}

	if err := res.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := res.Delete(ctx, rec.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if err := res.Update(ctx, rec.ID, collection.Fields{"title": "x"}); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Update deleted = %v, want ErrNotFound", err)
	}
}

func TestSQLiteResource_InsertValidation(t *testing.T) {
	res := newServicesResource(t)

	_, err := res.Insert(context.Background(), collection.Fields{"bullet_1": "no title"})
	if !errors.Is(err, collection.ErrValidation) {
		t.Errorf("Insert = %v, want ErrValidation", err)
	}
}

func TestSQLiteResource_KeywordColumn(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	res, err := services.NewSQLiteResource(ctx, st, services.WorkStackSchema)
	if err != nil {
		t.Fatalf("NewSQLiteResource: %v", err)
	}

	rec, err := res.Insert(ctx, collection.Fields{"index": "01", "title": "Loft"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.Index != "01" {
		t.Errorf("Index = %q, want 01", rec.Index)
	}
}

func TestSQLiteResource_JSONTags(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	res, err := services.NewSQLiteResource(ctx, st, services.PortfolioSchema)
	if err != nil {
		t.Fatalf("NewSQLiteResource: %v", err)
	}

	p := testutil.NewPortfolioProject()
	_, err = res.Insert(ctx, collection.Fields{"title": p.Title, "tags": p.Tags})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err = res.Insert(ctx, collection.Fields{"title": "Untagged", "sort_order": 1})
	if err != nil {
		t.Fatalf("Insert untagged: %v", err)
	}

	got, err := res.List(ctx, collection.SortOrderField)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got[0].Tags) != 2 || got[0].Tags[1] != "renovation" {
		t.Errorf("Tags = %v", got[0].Tags)
	}
	if got[1].Tags == nil || len(got[1].Tags) != 0 {
		t.Errorf("untagged Tags = %#v, want empty", got[1].Tags)
	}
}

func TestSQLiteResource_StoreRoundTrip(t *testing.T) {
	res := newServicesResource(t)
	ctx := context.Background()
	s := collection.NewStore[models.Service](res, collection.WithSortable())

	for _, title := range []string{"A", "B", "C"} {
		if _, err := s.Add(ctx, collection.Fields{"title": title}); err != nil {
			t.Fatalf("Add %s: %v", title, err)
		}
	}
	items := s.Items()
	if err := s.Reorder(ctx, []models.Service{items[2], items[0], items[1]}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	got := s.Items()
	for i, want := range []string{"C", "A", "B"} {
		if got[i].Title != want || got[i].SortOrder != i {
			t.Errorf("Items[%d] = %q@%d, want %q@%d", i, got[i].Title, got[i].SortOrder, want, i)
		}
	}
}
