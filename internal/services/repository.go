// Package services provides the SQL-backed remote resources of every site
// collection. A Schema describes one table; SQLiteResource and
// PostgresResource implement collection.Resource over it, and the contact
// repository stores the singleton contact row.
package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/HerbHall/atelier/internal/collection"
)

// ListResult wraps a result set with a total count.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResult wraps items, never encoding a null list.
func NewListResult[T any](items []T) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Total: len(items)}
}

// Sentinel errors returned by repositories. They are the collection error
// kinds, so callers can match either.
var (
	ErrNotFound   = collection.ErrNotFound
	ErrValidation = collection.ErrValidation
)

// Kind is the storage type of a column.
type Kind int

const (
	// Text is a string column.
	Text Kind = iota
	// Int is an integer column.
	Int
	// JSON is a structured value serialized as JSON (a list of tags).
	JSON
)

// Column is one writable column of a table. The id column is implicit.
type Column struct {
	Name string
	Kind Kind
}

// Schema describes the table behind one collection of T. Rules are
// go-playground/validator tags keyed by column name.
type Schema[T collection.Record] struct {
	Table    string
	Columns  []Column
	Rules    map[string]string
	Sortable bool
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() { validate = validator.New() })
	return validate
}

func (s Schema[T]) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (s Schema[T]) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks fields against the schema and returns the column names and
// driver values to write, in declaration order. For an insert (partial
// false) missing columns get their zero value and every rule applies; for an
// update only the given columns are checked.
func (s Schema[T]) Validate(fields collection.Fields, partial bool) ([]string, []any, error) {
	for k := range fields {
		if k == "id" {
			return nil, nil, fmt.Errorf("%w: id is assigned by the server", ErrValidation)
		}
		if _, ok := s.column(k); !ok {
			return nil, nil, fmt.Errorf("%w: unknown column %q in %s", ErrValidation, k, s.Table)
		}
	}

	data := make(map[string]any, len(s.Columns))
	var names []string
	var values []any
	for _, c := range s.Columns {
		raw, present := fields[c.Name]
		if !present && partial {
			continue
		}
		v, err := normalizeValue(c, raw)
		if err != nil {
			return nil, nil, err
		}
		data[c.Name] = v
		names = append(names, c.Name)
		values = append(values, v)
	}
	if partial && len(names) == 0 {
		return nil, nil, fmt.Errorf("%w: no columns to update in %s", ErrValidation, s.Table)
	}

	rules := make(map[string]any, len(s.Rules))
	for k, r := range s.Rules {
		if _, ok := data[k]; ok || !partial {
			rules[k] = r
		}
	}
	if errs := getValidator().ValidateMap(data, rules); len(errs) > 0 {
		return nil, nil, validationError(s.Table, errs)
	}
	return names, values, nil
}

func validationError(table string, errs map[string]any) error {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		tag := "invalid"
		if ves, ok := errs[k].(validator.ValidationErrors); ok && len(ves) > 0 {
			tag = ves[0].Tag()
			if p := ves[0].Param(); p != "" {
				tag += "=" + p
			}
		}
		parts = append(parts, k+" "+tag)
	}
	return fmt.Errorf("%w: %s: %s", ErrValidation, table, strings.Join(parts, ", "))
}

// normalizeValue converts a decoded request value to the driver value of c.
// JSON columns are stored as their encoded text.
func normalizeValue(c Column, v any) (any, error) {
	switch c.Kind {
	case Text:
		switch t := v.(type) {
		case nil:
			return "", nil
		case string:
			return t, nil
		}
	case Int:
		switch t := v.(type) {
		case nil:
			return int64(0), nil
		case int:
			return int64(t), nil
		case int32:
			return int64(t), nil
		case int64:
			return t, nil
		case float64:
			if t == math.Trunc(t) && !math.IsInf(t, 0) {
				return int64(t), nil
			}
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return n, nil
			}
		}
	case JSON:
		if v == nil {
			return "[]", nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrValidation, c.Name, err)
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("%w: %s has wrong type %T", ErrValidation, c.Name, v)
}

// decode builds a T from the id and column values of one row, in
// declaration order.
func (s Schema[T]) decode(id any, values []any) (T, error) {
	var out T
	data := make(map[string]any, len(values)+1)
	data["id"] = textOf(id)
	for i, c := range s.Columns {
		v := values[i]
		switch c.Kind {
		case Text:
			data[c.Name] = textOf(v)
		case JSON:
			switch t := v.(type) {
			case string:
				v = decodeJSON(t)
			case []byte:
				v = decodeJSON(string(t))
			}
			data[c.Name] = v
		default:
			data[c.Name] = v
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("encode %s row: %w", s.Table, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode %s row: %w", s.Table, err)
	}
	return out, nil
}

func decodeJSON(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// dialect holds the SQL differences between SQLite and Postgres.
type dialect struct {
	placeholder func(n int) string
	idSelect    string
}

var (
	sqliteDialect   = dialect{placeholder: func(int) string { return "?" }, idSelect: "id"}
	postgresDialect = dialect{placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }, idSelect: "id::text"}
)

// quote quotes a column name; some ("index") are keywords.
func quote(name string) string {
	return `"` + name + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return out
}

func (s Schema[T]) selectList(d dialect) string {
	return d.idSelect + ", " + strings.Join(quoteAll(s.Names()), ", ")
}

// selectSQL lists every row ordered by orderBy, ties broken by id so
// repeated reads return the same order.
func (s Schema[T]) selectSQL(d dialect, orderBy string) (string, error) {
	q := "SELECT " + s.selectList(d) + " FROM " + s.Table
	switch {
	case orderBy == "":
		return q + " ORDER BY id ASC", nil
	case orderBy == "id":
		return q + " ORDER BY id ASC", nil
	}
	if _, ok := s.column(orderBy); !ok {
		return "", fmt.Errorf("%w: cannot order %s by %q", ErrValidation, s.Table, orderBy)
	}
	return q + " ORDER BY " + quote(orderBy) + " ASC, id ASC", nil
}

func (s Schema[T]) insertSQL(d dialect, names []string, withID bool) string {
	cols := names
	if withID {
		cols = append([]string{"id"}, names...)
	}
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = d.placeholder(i + 1)
	}
	return "INSERT INTO " + s.Table + " (" + strings.Join(quoteAll(cols), ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
}

func (s Schema[T]) updateSQL(d dialect, names []string) string {
	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = quote(n) + " = " + d.placeholder(i+1)
	}
	return "UPDATE " + s.Table + " SET " + strings.Join(sets, ", ") + " WHERE id = " + d.placeholder(len(names)+1)
}

func (s Schema[T]) deleteSQL(d dialect) string {
	return "DELETE FROM " + s.Table + " WHERE id = " + d.placeholder(1)
}
