package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/auth"
	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/dashboard"
	"github.com/HerbHall/atelier/internal/guard"
	"github.com/HerbHall/atelier/internal/hosted"
	"github.com/HerbHall/atelier/internal/media"
	"github.com/HerbHall/atelier/internal/metrics"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/server"
	"github.com/HerbHall/atelier/internal/site"
)

func collectionPlugin[T collection.Record](ctx context.Context, b *backend, def site.Collection[T], sessions *guard.Sessions) (plugin.Plugin, error) {
	res, err := resourceFor(ctx, b, def.Schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}
	return dashboard.NewModule(def, res, sessions), nil
}

// mediaMount serves locally stored uploads under prefix.
type mediaMount struct {
	prefix string
	files  http.Handler
}

// buildPlugins returns every plugin of the dashboard, sharing one session
// table between the collection forms and the navigation guard.
func buildPlugins(ctx context.Context, cfg *config.Config, b *backend) ([]plugin.Plugin, *mediaMount, error) {
	sessions := guard.NewSessions()
	builders := []func() (plugin.Plugin, error){
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.Services, sessions) },
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.Testimonials, sessions) },
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.ProcessSteps, sessions) },
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.Stats, sessions) },
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.WorkStack, sessions) },
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.Portfolio, sessions) },
		func() (plugin.Plugin, error) { return collectionPlugin(ctx, b, site.Gallery, sessions) },
	}
	plugins := make([]plugin.Plugin, 0, len(builders)+3)
	for _, build := range builders {
		p, err := build()
		if err != nil {
			return nil, nil, err
		}
		plugins = append(plugins, p)
	}

	contacts, err := b.contacts(ctx)
	if err != nil {
		return nil, nil, err
	}
	bucket, files, err := b.bucket(cfg)
	if err != nil {
		return nil, nil, err
	}
	plugins = append(plugins,
		dashboard.NewContact(contacts),
		dashboard.NewSession(sessions),
		media.NewPlugin(bucket, site.Folders(), media.WithMaxBytes(int64(cfg.GetInt("media.max_bytes")))),
	)

	var mount *mediaMount
	if files != nil {
		mount = &mediaMount{prefix: cfg.GetString("media.public_url"), files: files}
	}
	return plugins, mount, nil
}

func newAuthenticator(cfg *config.Config, b *backend, logger *zap.Logger) (*auth.Authenticator, error) {
	opts := []auth.Option{
		auth.WithCookie(cfg.GetString("auth.cookie")),
		auth.WithDeny(server.Deny),
		auth.WithLogger(logger.Named("auth")),
	}
	if b.driver == driverHosted {
		opts = append(opts, auth.WithForward(hosted.WithToken))
	}

	var verifier *auth.Verifier
	secret := cfg.GetString("auth.jwt_secret")
	switch {
	case secret != "":
		var vopts []auth.VerifierOption
		if iss := cfg.GetString("auth.issuer"); iss != "" {
			vopts = append(vopts, auth.WithIssuer(iss))
		}
		v, err := auth.NewVerifier(secret, vopts...)
		if err != nil {
			return nil, err
		}
		verifier = v
	case cfg.GetBool("auth.insecure_dev"):
		logger.Warn("auth.insecure_dev is on: requests without a token act as the dev admin")
	default:
		return nil, errors.New("auth.jwt_secret is not set")
	}
	if cfg.GetBool("auth.insecure_dev") {
		opts = append(opts, auth.WithInsecureDev(true))
	}
	return auth.NewAuthenticator(verifier, opts...), nil
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("atelier server starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewRecorder(nil)
	b, err := openBackend(ctx, cfg, rec, logger)
	if err != nil {
		logger.Fatal("failed to open backend", zap.Error(err))
	}
	defer b.Close()

	authn, err := newAuthenticator(cfg, b, logger)
	if err != nil {
		logger.Fatal("failed to configure auth", zap.Error(err))
	}

	plugins, files, err := buildPlugins(ctx, cfg, b)
	if err != nil {
		logger.Fatal("failed to build plugins", zap.Error(err))
	}

	registry := plugin.NewRegistry(logger)
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}
	if err := registry.InitAll(cfg); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}
	if err := registry.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	opts := []server.Option{
		server.WithAuthenticator(authn, cfg.GetString("auth.role")),
		server.WithRateLimit(cfg.GetFloat64("ratelimit.rps"), cfg.GetInt("ratelimit.burst")),
		server.WithCORS(cfg.GetStringSlice("server.cors_origins")),
		server.WithMetrics(rec),
	}
	if files != nil {
		opts = append(opts, server.WithStatic(files.prefix, files.files))
	}

	addr := cfg.GetString("server.host") + ":" + cfg.GetString("server.port")
	srv := server.New(addr, registry, logger, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("atelier server ready", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	registry.StopAll()

	logger.Info("atelier server stopped")
}
