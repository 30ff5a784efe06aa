// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/ocms-emag/internal/authz"
	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/cache"
	"github.com/olegiv/ocms-emag/internal/config"
	"github.com/olegiv/ocms-emag/internal/editor"
	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/export"
	"github.com/olegiv/ocms-emag/internal/handler"
	"github.com/olegiv/ocms-emag/internal/handler/api"
	"github.com/olegiv/ocms-emag/internal/logging"
	"github.com/olegiv/ocms-emag/internal/middleware"
	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/remote"
	"github.com/olegiv/ocms-emag/internal/scheduler"
	"github.com/olegiv/ocms-emag/internal/seed"
	"github.com/olegiv/ocms-emag/internal/store"
	"github.com/olegiv/ocms-emag/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	envFile := flag.String("env-file", ".env", "Optional .env file to load before reading the environment")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "emag - eMag editor service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EMAG_DB_PATH           SQLite database path (default: ./data/emag.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EMAG_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EMAG_ENV               Environment: development|production|test\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EMAG_REMOTE_URL        Remote eMag API; the local database is used when empty\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EMAG_REDIS_URL         Redis URL for the export cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EMAG_BOOTSTRAP_TOKEN   Admin API token created on first start\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Printf("emag %s\n", info)
		os.Exit(0)
	}

	if err := run(*envFile, info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(envFile string, info version.Info) error {
	config.LoadDotEnv(envFile)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	logger.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// WARN and above are mirrored into the events table from here on.
	queries := store.New(db)
	logger = slog.New(logging.NewEventLogHandler(textHandler, queries))
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := store.SeedAdminToken(ctx, db, cfg.BootstrapToken); err != nil {
		return fmt.Errorf("seeding bootstrap token: %w", err)
	}
	if cfg.DoSeed {
		if _, err := seed.Run(ctx, db, logger); err != nil {
			return fmt.Errorf("seeding templates: %w", err)
		}
	}

	c := cache.New(ctx, cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxItems:        500,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() { _ = c.Close() }()

	var emagStore emagsync.Store
	localStore := store.NewEMagStore(db)
	if cfg.UseRemoteStore() {
		emagStore = remote.New(remote.Config{
			BaseURL:    cfg.RemoteURL,
			Token:      cfg.RemoteToken,
			Timeout:    15 * time.Second,
			Retries:    cfg.RemoteRetries,
			RetryDelay: 200 * time.Millisecond,
		})
		logger.Info("using remote eMag store", "url", cfg.RemoteURL)
	} else {
		emagStore = localStore
		logger.Info("using local eMag store")
	}

	adapter := emagsync.New(emagStore, logger, emagsync.Config{
		Concurrency: cfg.SyncConcurrency,
		Attempts:    cfg.SyncRetries,
		RetryDelay:  100 * time.Millisecond,
	})
	templates := editor.NewStoreTemplates(db)
	sessions := editor.NewManager(editor.Options{
		Adapter:   adapter,
		Templates: templates,
		Generator: export.NewGenerator(block.NewHTMLRenderer()),
		Exports:   cache.NewExportCache(c, cfg.CacheTTLDuration()),
		Logger:    logger,
	})

	sched := scheduler.New(logger, time.Minute)
	maintenance := scheduler.DefaultMaintenanceConfig()
	maintenance.IdleTimeout = cfg.SessionIdleTTL
	maintenance.EventRetention = cfg.EventRetention
	if err := scheduler.RegisterMaintenance(sched, sessions, queries, maintenance, logger); err != nil {
		return fmt.Errorf("registering maintenance jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	checker := authz.DefaultPolicy()
	apiOpts := api.Options{Sessions: sessions, Templates: templates, Logger: logger}
	if !cfg.UseRemoteStore() {
		// Serve the resource API only when this instance owns the records.
		apiOpts.EMags = localStore
	}
	apiHandler := api.NewHandler(apiOpts)
	healthHandler := handler.NewHealthHandler(db, c, sessions, info.Short())
	navigatorHandler := handler.NewNavigatorHandler(sessions, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(cfg.TrustedProxies))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.Route("/editor/{cv}/navigator", func(r chi.Router) {
		r.Use(middleware.TokenAuth(queries, logger))
		r.Use(middleware.RequirePermission(checker, model.PageEMagEditor, model.ActionView))
		r.Get("/", navigatorHandler.Tabs)
		r.Get("/intent/{index}", navigatorHandler.DeleteIntent)
	})

	r.Mount("/api/v1", apiHandler.Routes(api.RouteConfig{
		Tokens:    queries,
		Checker:   checker,
		RateLimit: cfg.APIRate,
		Burst:     cfg.APIBurst,
		Logger:    logger,
	}))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Short())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Flush pending page records before the process exits.
	if n := sessions.ResyncStale(shutdownCtx); n > 0 {
		logger.Info("resynced stale sessions on shutdown", "sessions", n)
	}

	logger.Info("server stopped")
	return nil
}
