package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/pkg/models"
)

func TestValidate_Insert(t *testing.T) {
	names, values, err := ServicesSchema.Validate(collection.Fields{
		"title":      "Design",
		"sort_order": float64(2),
	}, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	wantNames := []string{"title", "bullet_1", "bullet_2", "bullet_3", "sort_order"}
	if strings.Join(names, ",") != strings.Join(wantNames, ",") {
		t.Errorf("names = %v, want %v", names, wantNames)
	}
	if values[0] != "Design" || values[1] != "" || values[4] != int64(2) {
		t.Errorf("values = %#v", values)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema[models.Service]
		fields  collection.Fields
		partial bool
		want    string
	}{
		{"missing required", ServicesSchema, collection.Fields{"bullet_1": "x"}, false, "title required"},
		{"too long", ServicesSchema, collection.Fields{"title": strings.Repeat("x", 121)}, false, "title max=120"},
		{"unknown column", ServicesSchema, collection.Fields{"title": "x", "colour": "red"}, false, `unknown column "colour"`},
		{"client id", ServicesSchema, collection.Fields{"id": "abc", "title": "x"}, false, "assigned by the server"},
		{"wrong type", ServicesSchema, collection.Fields{"title": 12}, false, "wrong type"},
		{"fractional int", ServicesSchema, collection.Fields{"title": "x", "sort_order": 1.5}, false, "sort_order has wrong type"},
		{"empty update", ServicesSchema, collection.Fields{}, true, "no columns"},
		{"blank title update", ServicesSchema, collection.Fields{"title": ""}, true, "title required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.schema.Validate(tt.fields, tt.partial)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_PartialSkipsAbsentRules(t *testing.T) {
	names, values, err := ServicesSchema.Validate(collection.Fields{"sort_order": 3}, true)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(names) != 1 || names[0] != "sort_order" || values[0] != int64(3) {
		t.Errorf("names=%v values=%v", names, values)
	}
}

func TestValidate_ProcessIcon(t *testing.T) {
	if _, _, err := ProcessStepsSchema.Validate(collection.Fields{"icon_name": "rocket"}, true); !errors.Is(err, ErrValidation) {
		t.Errorf("icon rocket: err = %v, want ErrValidation", err)
	}
	if _, _, err := ProcessStepsSchema.Validate(collection.Fields{"icon_name": "wrench"}, true); err != nil {
		t.Errorf("icon wrench: %v", err)
	}
}

func TestValidate_JSONColumn(t *testing.T) {
	_, values, err := PortfolioSchema.Validate(collection.Fields{
		"title": "Villa",
		"tags":  []any{"residential", "bali"},
	}, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	var tags any
	for i, c := range PortfolioSchema.Columns {
		if c.Name == "tags" {
			tags = values[i]
		}
	}
	if tags != `["residential","bali"]` {
		t.Errorf("tags = %#v", tags)
	}
}

func TestSQLBuilders(t *testing.T) {
	s := Schema[models.Stat]{
		Table:   "studio_stats",
		Columns: []Column{{"label", Text}, {"value", Int}, {"sort_order", Int}},
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sqlite insert", s.insertSQL(sqliteDialect, []string{"label", "value"}, true),
			`INSERT INTO studio_stats ("id", "label", "value") VALUES (?, ?, ?)`},
		{"postgres insert", s.insertSQL(postgresDialect, []string{"label", "value"}, false),
			`INSERT INTO studio_stats ("label", "value") VALUES ($1, $2)`},
		{"sqlite update", s.updateSQL(sqliteDialect, []string{"sort_order"}),
			`UPDATE studio_stats SET "sort_order" = ? WHERE id = ?`},
		{"postgres update", s.updateSQL(postgresDialect, []string{"label", "sort_order"}),
			`UPDATE studio_stats SET "label" = $1, "sort_order" = $2 WHERE id = $3`},
		{"postgres delete", s.deleteSQL(postgresDialect), `DELETE FROM studio_stats WHERE id = $1`},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s:\n got %s\nwant %s", tt.name, tt.got, tt.want)
		}
	}

	q, err := s.selectSQL(postgresDialect, collection.SortOrderField)
	if err != nil {
		t.Fatalf("selectSQL: %v", err)
	}
	if want := `SELECT id::text, "label", "value", "sort_order" FROM studio_stats ORDER BY "sort_order" ASC, id ASC`; q != want {
		t.Errorf("select:\n got %s\nwant %s", q, want)
	}
	if _, err := s.selectSQL(sqliteDialect, "label; DROP TABLE x"); !errors.Is(err, ErrValidation) {
		t.Errorf("selectSQL with bad column: err = %v, want ErrValidation", err)
	}
}

func TestPostgresDDL(t *testing.T) {
	ddl := PostgresDDL(PortfolioSchema)
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS portfolio_projects",
		"id uuid PRIMARY KEY DEFAULT gen_random_uuid()",
		`"tags" jsonb NOT NULL DEFAULT '[]'::jsonb`,
		`"sort_order" integer NOT NULL DEFAULT 0`,
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("DDL missing %q:\n%s", want, ddl)
		}
	}
}

func TestNewListResult(t *testing.T) {
	r := NewListResult[models.Service](nil)
	if r.Items == nil || r.Total != 0 {
		t.Errorf("NewListResult(nil) = %+v", r)
	}
}
