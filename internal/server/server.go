package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/auth"
	"github.com/HerbHall/atelier/internal/metrics"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/version"
)

// Server is the atelier HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *plugin.Registry
	logger     *zap.Logger
	mux        *http.ServeMux

	authn   *auth.Authenticator
	role    string
	limiter *Limiter
	origins []string
	metrics *metrics.Recorder
	static  map[string]http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator protects every non-public plugin route with authn,
// requiring role.
func WithAuthenticator(authn *auth.Authenticator, role string) Option {
	return func(s *Server) {
		s.authn = authn
		s.role = role
	}
}

// WithRateLimit limits each client to rps requests per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = NewLimiter(rps, burst)
		}
	}
}

// WithCORS allows cross-origin calls from origins, typically the marketing
// site reading the public endpoints.
func WithCORS(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMetrics instruments requests and serves /metrics from rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = rec }
}

// WithStatic serves h under the path prefix, unauthenticated.
func WithStatic(prefix string, h http.Handler) Option {
	return func(s *Server) {
		if s.static == nil {
			s.static = make(map[string]http.Handler)
		}
		s.static[prefix] = h
	}
}

// New creates a new Server instance.
func New(addr string, reg *plugin.Registry, logger *zap.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		registry: reg,
		logger:   logger,
		mux:      mux,
		role:     auth.RoleAdmin,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerCoreRoutes()
	s.mountPluginRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	if len(s.origins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{
				http.MethodHead,
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodPatch,
				http.MethodDelete,
			},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           600,
		}).Handler(h)
	}
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	return h
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mux.HandleFunc("GET /api/v1/version", s.handleVersion)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	for prefix, h := range s.static {
		p := "/" + strings.Trim(prefix, "/") + "/"
		s.mux.Handle("GET "+p, http.StripPrefix(p, h))
	}
}

// mountPluginRoutes registers all plugin routes under /api/v1/{plugin}/.
func (s *Server) mountPluginRoutes() {
	allRoutes := s.registry.AllRoutes()
	names := make([]string, 0, len(allRoutes))
	for name := range allRoutes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, pluginName := range names {
		for _, route := range allRoutes[pluginName] {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, pluginName, route.Path)
			var h http.Handler = route.Handler
			if !route.Public && s.authn != nil {
				h = s.authn.RequireRole(s.role)(h)
			}
			s.mux.Handle(pattern, h)
			s.logger.Debug("mounted route",
				zap.String("plugin", pluginName),
				zap.String("pattern", pattern),
				zap.Bool("public", route.Public),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Atelier-Version", version.Short())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth reports overall status plus each plugin's own health. Any
// unhealthy plugin turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := s.registry.Health(r.Context())
	status, code := "ok", http.StatusOK
	for _, c := range checks {
		switch c.Status {
		case plugin.StatusUnhealthy:
			status, code = "unhealthy", http.StatusServiceUnavailable
		case plugin.StatusDegraded:
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"service": "atelier",
		"version": version.Current(),
		"plugins": checks,
	})
}

// handlePlugins returns the list of registered plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	plugins := s.registry.All()
	type pluginResponse struct {
		Name        string `json:"name"`
		Version     string `json:"version"`
		Description string `json:"description"`
		Enabled     bool   `json:"enabled"`
	}
	info := make([]pluginResponse, 0, len(plugins))
	for _, p := range plugins {
		pi := p.Info()
		info = append(info, pluginResponse{
			Name:        pi.Name,
			Version:     pi.Version,
			Description: pi.Description,
			Enabled:     !s.registry.IsDisabled(pi.Name),
		})
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}
