package models

import "time"

// ContactInfo is the single row of studio contact details shown in the
// footer and on the contact section.
type ContactInfo struct {
	Address       string    `json:"address" yaml:"address"`
	Email         string    `json:"email" yaml:"email"`
	Phone         string    `json:"phone" yaml:"phone"`
	WhatsappLink  string    `json:"whatsapp_link" yaml:"whatsapp_link"`
	MapsEmbedURL  string    `json:"maps_embed_url" yaml:"maps_embed_url"`
	MapsLink      string    `json:"maps_link" yaml:"maps_link"`
	BusinessHours string    `json:"business_hours" yaml:"business_hours"`
	LocationLabel string    `json:"location_label" yaml:"location_label"`
	UpdatedAt     time.Time `json:"updated_at,omitzero" yaml:"-"`
}
