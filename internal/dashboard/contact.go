package dashboard

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/server"
	"github.com/HerbHall/atelier/internal/services"
	"github.com/HerbHall/atelier/internal/version"
	"github.com/HerbHall/atelier/pkg/models"
)

var (
	_ plugin.Plugin       = (*Contact)(nil)
	_ plugin.HTTPProvider = (*Contact)(nil)
)

// Contact serves the studio contact details.
type Contact struct {
	repo   services.ContactRepository
	logger *zap.Logger
}

// NewContact returns the contact plugin over repo.
func NewContact(repo services.ContactRepository) *Contact {
	return &Contact{repo: repo, logger: zap.NewNop()}
}

func (c *Contact) Info() plugin.Info {
	return plugin.Info{
		Name:        "contact",
		Version:     version.Short(),
		Description: "Studio contact details",
	}
}

func (c *Contact) Init(_ *config.Config, logger *zap.Logger) error {
	if logger != nil {
		c.logger = logger
	}
	return nil
}

func (c *Contact) Start(context.Context) error { return nil }
func (c *Contact) Stop() error                 { return nil }

func (c *Contact) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/info", Handler: c.handleGet},
		{Method: "PUT", Path: "/info", Handler: c.handlePut},
		{Method: "GET", Path: "/public", Handler: c.handlePublic, Public: true},
	}
}

// handleGet returns the contact details for the admin form. Before the first
// save the form starts empty.
func (c *Contact) handleGet(w http.ResponseWriter, r *http.Request) {
	info, err := c.repo.Get(r.Context())
	if errors.Is(err, collection.ErrNotFound) {
		writeJSON(w, http.StatusOK, models.ContactInfo{})
		return
	}
	if err != nil {
		c.logger.Warn("failed to load contact info", zap.Error(err))
		server.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (c *Contact) handlePut(w http.ResponseWriter, r *http.Request) {
	var info models.ContactInfo
	if err := decodeJSON(w, r, &info, false); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	saved, err := c.repo.Upsert(r.Context(), info)
	if err != nil {
		c.logger.Warn("failed to save contact info", zap.Error(err))
		server.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (c *Contact) handlePublic(w http.ResponseWriter, r *http.Request) {
	info, err := c.repo.Get(r.Context())
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
