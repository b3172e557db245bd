// Package site defines the content collections of the studio site: their
// tables, list columns, form defaults and the media folder their images are
// uploaded to.
package site

import (
	"encoding/json"
	"strings"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/internal/table"
	"github.com/HerbHall/atelier/pkg/models"
)

// Collection is the complete definition of one dashboard collection.
type Collection[T collection.Record] struct {
	// Name is the route prefix and plugin name.
	Name  string
	Title string

	Schema    services.Schema[T]
	Columns   []table.Column[T]
	EmptyText string
	// Defaults prefill the add form. sort_order is left out so new records
	// go to the end of the list.
	Defaults collection.Fields
	// Folder is the media folder for this collection's image uploads.
	Folder string
}

// Sortable reports whether the collection supports manual ordering.
func (c Collection[T]) Sortable() bool { return c.Schema.Sortable }

// Editable returns the form fields of rec: every stored column except id.
func (c Collection[T]) Editable(rec T) collection.Fields {
	return Editable(rec)
}

// Editable extracts the JSON fields of rec without its id.
func Editable[T collection.Record](rec T) collection.Fields {
	b, err := json.Marshal(rec)
	if err != nil {
		return collection.Fields{}
	}
	out := collection.Fields{}
	if err := json.Unmarshal(b, &out); err != nil {
		return collection.Fields{}
	}
	delete(out, "id")
	return out
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func image(url string) string {
	if url == "" {
		return ""
	}
	if i := strings.LastIndexByte(url, '/'); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return url
}

// Services is the homepage service offerings.
var Services = Collection[models.Service]{
	Name:   "services",
	Title:  "Services",
	Schema: services.ServicesSchema,
	Columns: []table.Column[models.Service]{
		{Key: "title", Label: "Title"},
		{Key: "bullet_1", Label: "Bullet 1", HideNarrow: true},
		{Key: "bullet_2", Label: "Bullet 2", HideNarrow: true},
		{Key: "sort_order", Label: "Order", HideNarrow: true},
	},
	EmptyText: "No services yet.",
	Defaults:  collection.Fields{"title": "", "bullet_1": "", "bullet_2": "", "bullet_3": ""},
}

// Testimonials is the client quotes.
var Testimonials = Collection[models.Testimonial]{
	Name:   "testimonials",
	Title:  "Testimonials",
	Schema: services.TestimonialsSchema,
	Columns: []table.Column[models.Testimonial]{
		{Key: "name", Label: "Name"},
		{Key: "title", Label: "Title"},
		{Key: "quote", Label: "Quote", Render: func(t models.Testimonial) string { return clip(t.Quote, 80) }},
		{Key: "sort_order", Label: "Order"},
	},
	EmptyText: "No testimonials yet. Add your first one.",
	Defaults:  collection.Fields{"name": "", "title": "", "quote": ""},
}

// ProcessSteps is the numbered working process.
var ProcessSteps = Collection[models.ProcessStep]{
	Name:   "process",
	Title:  "Process",
	Schema: services.ProcessStepsSchema,
	Columns: []table.Column[models.ProcessStep]{
		{Key: "num", Label: "#"},
		{Key: "title_en", Label: "Step (EN)"},
		{Key: "title_id", Label: "Step (ID)", HideNarrow: true},
		{Key: "icon_name", Label: "Icon", HideNarrow: true},
		{Key: "sort_order", Label: "Order", HideNarrow: true},
	},
	EmptyText: "No process steps yet.",
	Defaults: collection.Fields{
		"num": "01", "title_en": "", "title_id": "", "description": "",
		"icon_name": string(models.ProcessIconHome),
	},
}

// Stats is the headline numbers strip.
var Stats = Collection[models.Stat]{
	Name:   "stats",
	Title:  "Stats",
	Schema: services.StatsSchema,
	Columns: []table.Column[models.Stat]{
		{Key: "label", Label: "Label"},
		{Key: "value", Label: "Value"},
		{Key: "suffix", Label: "Suffix"},
		{Key: "sort_order", Label: "Order"},
	},
	EmptyText: "No stats yet.",
	Defaults:  collection.Fields{"label": "", "value": 0, "suffix": ""},
}

// WorkStack is the stacked work showcase.
var WorkStack = Collection[models.WorkStackProject]{
	Name:   "workstack",
	Title:  "Work Stack",
	Schema: services.WorkStackSchema,
	Columns: []table.Column[models.WorkStackProject]{
		{Key: "image_url", Label: "Image", Render: func(p models.WorkStackProject) string { return image(p.ImageURL) }},
		{Key: "index", Label: "#"},
		{Key: "title", Label: "Title"},
		{Key: "location", Label: "Location", HideNarrow: true},
		{Key: "type", Label: "Type", HideNarrow: true},
		{Key: "metric", Label: "Metric", HideNarrow: true},
	},
	EmptyText: "No work stack projects yet.",
	Defaults: collection.Fields{
		"index": "01", "title": "", "location": "", "type": "", "description": "",
		"metric": "", "metric_label": "",
		"palette_from": "#0d0d0d", "palette_via": "#111111", "palette_to": "#000000",
		"accent_color": "text-amber-300", "image_url": "",
	},
	Folder: "workstack",
}

// Portfolio is the case studies of the portfolio page.
var Portfolio = Collection[models.PortfolioProject]{
	Name:   "portfolio",
	Title:  "Portfolio Projects",
	Schema: services.PortfolioSchema,
	Columns: []table.Column[models.PortfolioProject]{
		{Key: "image_url", Label: "Image", Render: func(p models.PortfolioProject) string { return image(p.ImageURL) }},
		{Key: "title", Label: "Title"},
		{Key: "location", Label: "Location"},
		{Key: "type", Label: "Type"},
		{Key: "metric_value", Label: "Metric"},
		{Key: "tags", Label: "Tags", HideNarrow: true},
		{Key: "sort_order", Label: "Order"},
	},
	EmptyText: "No portfolio projects yet.",
	Defaults: collection.Fields{
		"title": "", "location": "", "type": "", "summary": "",
		"metric_label": "", "metric_value": "", "image_url": "",
		"overlay_gradient": "from-black/80 via-black/60 to-black/90",
		"accent_color":     "bg-white/55",
		"tags":             []any{},
	},
	Folder: "portfolio",
}

// Gallery is the portfolio image gallery.
var Gallery = Collection[models.GalleryItem]{
	Name:   "gallery",
	Title:  "Gallery",
	Schema: services.GallerySchema,
	Columns: []table.Column[models.GalleryItem]{
		{Key: "image_url", Label: "Image", Render: func(g models.GalleryItem) string { return image(g.ImageURL) }},
		{Key: "title", Label: "Title"},
		{Key: "caption", Label: "Caption"},
		{Key: "sort_order", Label: "Order"},
	},
	EmptyText: "No gallery items yet.",
	Defaults: collection.Fields{
		"title": "", "caption": "", "image_url": "",
		"tone_gradient": "from-black/60 via-black/35 to-black/70",
	},
	Folder: "gallery",
}

// Folders lists the media folders uploads may target.
func Folders() []string {
	return []string{WorkStack.Folder, Portfolio.Folder, Gallery.Folder}
}
