package services

import "github.com/HerbHall/atelier/pkg/models"

// Table schemas of the studio site.
var (
	ServicesSchema = Schema[models.Service]{
		Table: "services",
		Columns: []Column{
			{"title", Text}, {"bullet_1", Text}, {"bullet_2", Text}, {"bullet_3", Text}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"title":    "required,max=120",
			"bullet_1": "max=200",
			"bullet_2": "max=200",
			"bullet_3": "max=200",
		},
		Sortable: true,
	}

	TestimonialsSchema = Schema[models.Testimonial]{
		Table: "testimonials",
		Columns: []Column{
			{"name", Text}, {"title", Text}, {"quote", Text}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"name":  "required,max=120",
			"title": "max=120",
			"quote": "required,max=2000",
		},
		Sortable: true,
	}

	ProcessStepsSchema = Schema[models.ProcessStep]{
		Table: "process_steps",
		Columns: []Column{
			{"num", Text}, {"title_en", Text}, {"title_id", Text}, {"description", Text}, {"icon_name", Text}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"num":       "max=8",
			"title_en":  "required,max=120",
			"title_id":  "max=120",
			"icon_name": "omitempty,oneof=money location design wrench home",
		},
		Sortable: true,
	}

	StatsSchema = Schema[models.Stat]{
		Table: "studio_stats",
		Columns: []Column{
			{"label", Text}, {"value", Int}, {"suffix", Text}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"label":  "required,max=80",
			"value":  "min=0",
			"suffix": "max=8",
		},
	}

	WorkStackSchema = Schema[models.WorkStackProject]{
		Table: "workstack_projects",
		Columns: []Column{
			{"index", Text}, {"title", Text}, {"location", Text}, {"type", Text}, {"description", Text},
			{"metric", Text}, {"metric_label", Text}, {"palette_from", Text}, {"palette_via", Text},
			{"palette_to", Text}, {"accent_color", Text}, {"image_url", Text}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"title":     "required,max=160",
			"image_url": "omitempty,url",
		},
		Sortable: true,
	}

	PortfolioSchema = Schema[models.PortfolioProject]{
		Table: "portfolio_projects",
		Columns: []Column{
			{"title", Text}, {"location", Text}, {"type", Text}, {"summary", Text}, {"metric_label", Text},
			{"metric_value", Text}, {"image_url", Text}, {"overlay_gradient", Text}, {"accent_color", Text},
			{"tags", JSON}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"title":     "required,max=160",
			"image_url": "omitempty,url",
		},
	}

	GallerySchema = Schema[models.GalleryItem]{
		Table: "portfolio_gallery",
		Columns: []Column{
			{"title", Text}, {"caption", Text}, {"image_url", Text}, {"tone_gradient", Text}, {"sort_order", Int},
		},
		Rules: map[string]string{
			"title":     "max=160",
			"image_url": "required,url",
		},
	}
)
