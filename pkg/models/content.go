// Package models defines the records of every collection that backs the
// studio's public site. Each record carries a server-assigned ID and a
// sort_order position; JSON names match the column names of the hosted tables.
package models

// Service is one of the service offerings shown on the homepage.
type Service struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Bullet1   string `json:"bullet_1" yaml:"bullet_1"`
	Bullet2   string `json:"bullet_2" yaml:"bullet_2"`
	Bullet3   string `json:"bullet_3" yaml:"bullet_3"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
}

func (s Service) RecordID() string     { return s.ID }
func (s Service) RecordSortOrder() int { return s.SortOrder }

// Testimonial is a client quote.
type Testimonial struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Title     string `json:"title" yaml:"title"`
	Quote     string `json:"quote" yaml:"quote"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
}

func (t Testimonial) RecordID() string     { return t.ID }
func (t Testimonial) RecordSortOrder() int { return t.SortOrder }

// Stat is a headline number in the studio stats strip ("120+ projects").
type Stat struct {
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	Value     int    `json:"value" yaml:"value"`
	Suffix    string `json:"suffix" yaml:"suffix"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
}

func (s Stat) RecordID() string     { return s.ID }
func (s Stat) RecordSortOrder() int { return s.SortOrder }

// WorkStackProject is a card in the horizontally stacked work showcase.
type WorkStackProject struct {
	ID          string `json:"id" yaml:"id"`
	Index       string `json:"index" yaml:"index"`
	Title       string `json:"title" yaml:"title"`
	Location    string `json:"location" yaml:"location"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Metric      string `json:"metric" yaml:"metric"`
	MetricLabel string `json:"metric_label" yaml:"metric_label"`
	PaletteFrom string `json:"palette_from" yaml:"palette_from"`
	PaletteVia  string `json:"palette_via" yaml:"palette_via"`
	PaletteTo   string `json:"palette_to" yaml:"palette_to"`
	AccentColor string `json:"accent_color" yaml:"accent_color"`
	ImageURL    string `json:"image_url" yaml:"image_url"`
	SortOrder   int    `json:"sort_order" yaml:"sort_order"`
}

func (p WorkStackProject) RecordID() string     { return p.ID }
func (p WorkStackProject) RecordSortOrder() int { return p.SortOrder }

// PortfolioProject is a case study on the portfolio page.
type PortfolioProject struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Location        string   `json:"location" yaml:"location"`
	Type            string   `json:"type" yaml:"type"`
	Summary         string   `json:"summary" yaml:"summary"`
	MetricLabel     string   `json:"metric_label" yaml:"metric_label"`
	MetricValue     string   `json:"metric_value" yaml:"metric_value"`
	ImageURL        string   `json:"image_url" yaml:"image_url"`
	OverlayGradient string   `json:"overlay_gradient" yaml:"overlay_gradient"`
	AccentColor     string   `json:"accent_color" yaml:"accent_color"`
	Tags            []string `json:"tags" yaml:"tags"`
	SortOrder       int      `json:"sort_order" yaml:"sort_order"`
}

func (p PortfolioProject) RecordID() string     { return p.ID }
func (p PortfolioProject) RecordSortOrder() int { return p.SortOrder }

// GalleryItem is a single image in the portfolio gallery.
type GalleryItem struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Caption      string `json:"caption" yaml:"caption"`
	ImageURL     string `json:"image_url" yaml:"image_url"`
	ToneGradient string `json:"tone_gradient" yaml:"tone_gradient"`
	SortOrder    int    `json:"sort_order" yaml:"sort_order"`
}

func (g GalleryItem) RecordID() string     { return g.ID }
func (g GalleryItem) RecordSortOrder() int { return g.SortOrder }
