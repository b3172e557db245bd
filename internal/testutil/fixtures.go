package testutil

import (
	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/pkg/models"
)

// NewService returns a Service with sensible defaults, suitable for test
// fixtures. The ID is left empty so the resource assigns one.
func NewService(opts ...func(*models.Service)) models.Service {
	s := models.Service{
		Title:   "Interior Design",
		Bullet1: "Concept and moodboard",
		Bullet2: "3D visualisation",
		Bullet3: "Material selection",
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithTitle sets the service title.
func WithTitle(title string) func(*models.Service) {
	return func(s *models.Service) { s.Title = title }
}

// WithID sets the service ID.
func WithID(id string) func(*models.Service) {
	return func(s *models.Service) { s.ID = id }
}

// WithSortOrder sets the service position.
func WithSortOrder(n int) func(*models.Service) {
	return func(s *models.Service) { s.SortOrder = n }
}

// ServiceFields returns the writable fields of s.
func ServiceFields(s models.Service) collection.Fields {
	return collection.Fields{
		"title":      s.Title,
		"bullet_1":   s.Bullet1,
		"bullet_2":   s.Bullet2,
		"bullet_3":   s.Bullet3,
		"sort_order": s.SortOrder,
	}
}

// Services returns n services titled "A", "B", ... at positions 0..n-1,
// with IDs "1", "2", ...
func Services(n int) []models.Service {
	out := make([]models.Service, n)
	for i := range out {
		out[i] = NewService(
			WithID(string(rune('1'+i))),
			WithTitle(string(rune('A'+i))),
			WithSortOrder(i),
		)
	}
	return out
}

// NewPortfolioProject returns a PortfolioProject with defaults.
func NewPortfolioProject(opts ...func(*models.PortfolioProject)) models.PortfolioProject {
	p := models.PortfolioProject{
		Title:       "Hillside Residence",
		Location:    "Bandung",
		Type:        "Residential",
		Summary:     "Full renovation of a two-storey family home.",
		MetricLabel: "Area",
		MetricValue: "240 m2",
		Tags:        []string{"residential", "renovation"},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
