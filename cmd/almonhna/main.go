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
	"github.com/joho/godotenv"

	"github.com/almonhna/almonhna/internal/auth"
	"github.com/almonhna/almonhna/internal/cache"
	"github.com/almonhna/almonhna/internal/config"
	"github.com/almonhna/almonhna/internal/handler/api"
	"github.com/almonhna/almonhna/internal/i18n"
	"github.com/almonhna/almonhna/internal/logging"
	"github.com/almonhna/almonhna/internal/middleware"
	"github.com/almonhna/almonhna/internal/notify"
	"github.com/almonhna/almonhna/internal/scheduler"
	"github.com/almonhna/almonhna/internal/service"
	"github.com/almonhna/almonhna/internal/session"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	uploadsMaxAge   = 604800 // one week
	rateLimitPrune  = 5 * time.Minute
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Almonhna - Arabic news and magazine backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_DB_PATH          SQLite database path (default: ./data/almonhna.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_SITE_URL         Public URL used in email links\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_MAIL_PROVIDER    sendgrid|resend|log (default: log)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_REDIS_URL        Redis URL for listing cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ALMONHNA_ADMIN_EMAIL      Administrator created by setup\n")
	}

	flag.Parse()

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.SupportedLanguages)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Listing cache
	cacheResult, err := cache.NewCacheWithInfo(cache.CacheConfig{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		FallbackToMemory: true,
		DefaultTTL:       time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = cacheResult.Cache.Close() }()
	slog.Info("cache initialized", "backend", cacheResult.BackendType, "fallback", cacheResult.IsFallback)
	listings := cache.NewListings(cacheResult.Cache, time.Duration(cfg.CacheTTL)*time.Second)

	// Email outbox and delivery workers
	sender, err := notify.NewSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing mail sender: %w", err)
	}
	outbox := notify.NewOutbox(db, sender, cfg.SiteURL, logger)
	dispatcher := notify.NewDispatcher(outbox, logger, notify.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Services
	events := service.NewEventService(db)
	links := service.NewLinkBuilder(auth.NewTokenIssuer(cfg.TokenKey(), cfg.TokenTTL), cfg.SiteURL)
	setup := service.NewSetupService(db, service.AdminCredentials{
		Email:    cfg.AdminEmail,
		Name:     cfg.AdminName,
		Password: cfg.AdminPassword,
	}, events, logger)

	if cfg.DoSeed {
		if _, err := setup.Run(ctx, service.Actor{Path: "startup"}); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	}

	// Scheduled jobs
	retention := time.Duration(cfg.EventRetentionDays) * 24 * time.Hour
	jobs := scheduler.New(db, outbox, retention, logger)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer jobs.Stop()

	sessionManager := session.New(db, cfg.IsDevelopment())
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	apiHandler := api.NewHandler(api.Deps{
		DB:         db,
		Sessions:   sessionManager,
		Authorizer: service.NewAuthorizer(db),
		Accounts:   service.NewAccountService(db, links, outbox, dispatcher, events, logger),
		Writers: service.NewWriterService(db, service.WriterDeps{
			Outbox:   outbox,
			Notifier: dispatcher,
			Links:    links,
			Listings: listings,
			Events:   events,
			Logger:   logger,
		}),
		Content:  service.NewContentService(db, listings, events, logger),
		Roles:    service.NewRoleService(db, listings, events),
		Products: service.NewProductService(db, listings, events),
		Stats:    service.NewStatsService(db),
		Setup:    setup,
		Media:    service.NewMediaService(cfg.UploadsDir, cfg.UploadMaxBytes, events, logger),
		Events:   events,
		Listings: listings,
		Jobs:     jobs,
		Login:    loginProtection,
		Version:  info.Short(),
		Logger:   logger,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.Language(sessionManager))

	// Global rate limiting (100 requests per second with burst of 200)
	apiRateLimiter := middleware.NewGlobalRateLimiter(100, 200)
	r.Use(apiRateLimiter.Middleware())
	go pruneLimiter(ctx, apiRateLimiter)

	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.SiteURL, cfg.IsDevelopment())))

	apiHandler.Routes(r)

	uploadsHandler := middleware.StaticCache(uploadsMaxAge, true)(
		http.StripPrefix(service.UploadsURLPrefix, http.FileServer(http.Dir(cfg.UploadsDir))))
	r.Handle(service.UploadsURLPrefix+"*", uploadsHandler)

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
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Short())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func pruneLimiter(ctx context.Context, rl *middleware.GlobalRateLimiter) {
	ticker := time.NewTicker(rateLimitPrune)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}
