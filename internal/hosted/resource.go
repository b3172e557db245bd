package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/pkg/models"
)

// Compile-time interface guards.
var (
	_ collection.Resource[models.Service] = (*Resource[models.Service])(nil)
	_ services.ContactRepository          = (*ContactRepository)(nil)
)

const returnRepresentation = "return=representation"

// Resource implements collection.Resource over one hosted table.
type Resource[T collection.Record] struct {
	client *Client
	table  string
}

// NewResource returns a resource over the named table.
func NewResource[T collection.Record](c *Client, table string) *Resource[T] {
	return &Resource[T]{client: c, table: table}
}

// Name implements collection.Resource.
func (r *Resource[T]) Name() string { return r.table }

func (r *Resource[T]) path() string { return "/rest/v1/" + url.PathEscape(r.table) }

func idFilter(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

// List implements collection.Resource. Rows with equal orderBy values are
// ordered by id so every load shows them the same way.
func (r *Resource[T]) List(ctx context.Context, orderBy string) ([]T, error) {
	q := url.Values{"select": {"*"}}
	if orderBy != "" {
		q.Set("order", orderBy+".asc,id.asc")
	}
	body, err := r.client.do(ctx, request{method: http.MethodGet, path: r.path(), query: q})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	items := []T{}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", r.table, err)
	}
	return items, nil
}

// Insert implements collection.Resource.
func (r *Resource[T]) Insert(ctx context.Context, fields collection.Fields) (T, error) {
	var zero T
	body, err := r.client.doJSON(ctx, request{
		method:  http.MethodPost,
		path:    r.path(),
		headers: map[string]string{"Prefer": returnRepresentation},
	}, fields)
	if err != nil {
		return zero, fmt.Errorf("insert %s: %w", r.table, err)
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return zero, fmt.Errorf("decode %s insert: %w", r.table, err)
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("insert %s: empty representation", r.table)
	}
	return rows[0], nil
}

// Update implements collection.Resource. A filter that matches no row is
// reported as collection.ErrNotFound.
func (r *Resource[T]) Update(ctx context.Context, id string, fields collection.Fields) error {
	body, err := r.client.doJSON(ctx, request{
		method:  http.MethodPatch,
		path:    r.path(),
		query:   idFilter(id),
		headers: map[string]string{"Prefer": returnRepresentation},
	}, fields)
	if err != nil {
		return fmt.Errorf("update %s %q: %w", r.table, id, err)
	}
	return r.affected(body, id)
}

// Delete implements collection.Resource.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	body, err := r.client.do(ctx, request{
		method:  http.MethodDelete,
		path:    r.path(),
		query:   idFilter(id),
		headers: map[string]string{"Prefer": returnRepresentation},
	})
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", r.table, id, err)
	}
	return r.affected(body, id)
}

func (r *Resource[T]) affected(body []byte, id string) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode %s response: %w", r.table, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %q: %w", r.table, id, collection.ErrNotFound)
	}
	return nil
}

// ContactRepository stores contact details in the hosted contact_info table.
type ContactRepository struct {
	client *Client
}

// NewContactRepository returns a hosted contact repository.
func NewContactRepository(c *Client) *ContactRepository {
	return &ContactRepository{client: c}
}

type contactRow struct {
	ID int `json:"id"`
	models.ContactInfo
}

func (r *ContactRepository) Get(ctx context.Context) (*models.ContactInfo, error) {
	q := url.Values{"select": {"*"}, "id": {fmt.Sprintf("eq.%d", services.ContactRowID)}}
	body, err := r.client.do(ctx, request{method: http.MethodGet, path: "/rest/v1/contact_info", query: q})
	if err != nil {
		return nil, fmt.Errorf("get contact info: %w", err)
	}
	var rows []contactRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode contact info: %w", err)
	}
	if len(rows) == 0 {
		return nil, services.ErrNotFound
	}
	return &rows[0].ContactInfo, nil
}

func (r *ContactRepository) Upsert(ctx context.Context, info models.ContactInfo) (*models.ContactInfo, error) {
	if err := services.ValidateContact(info); err != nil {
		return nil, err
	}
	body, err := r.client.doJSON(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/contact_info",
		query:   url.Values{"on_conflict": {"id"}},
		headers: map[string]string{"Prefer": "resolution=merge-duplicates," + returnRepresentation},
	}, contactRow{ID: services.ContactRowID, ContactInfo: info})
	if err != nil {
		return nil, fmt.Errorf("upsert contact info: %w", err)
	}
	var rows []contactRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode contact info: %w", err)
	}
	if len(rows) == 0 {
		return &info, nil
	}
	return &rows[0].ContactInfo, nil
}
