// Package plugin defines the module contract of the atelier server and the
// registry that drives module lifecycles.
package plugin

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/config"
)

// Route represents an HTTP route exposed by a plugin. Paths are relative to
// /api/v1/{plugin}.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	// Public routes are served without authentication.
	Public bool
}

// Info describes a plugin.
type Info struct {
	Name        string
	Version     string
	Description string
	// Required plugins abort startup when they fail to initialize. Optional
	// plugins are disabled instead.
	Required bool
}

// Plugin defines the interface that all atelier modules implement.
type Plugin interface {
	// Info returns the plugin's identity. Name is also its route prefix.
	Info() Info

	// Init initializes the plugin with its configuration subtree
	// (plugins.{name}) and a named logger.
	Init(cfg *config.Config, logger *zap.Logger) error

	// Start begins the plugin's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the plugin.
	Stop() error
}
