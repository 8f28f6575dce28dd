package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poskit/backoffice/internal/audit"
	"github.com/poskit/backoffice/internal/client"
	"github.com/poskit/backoffice/internal/config"
	"github.com/poskit/backoffice/internal/importer"
	"github.com/poskit/backoffice/internal/logging"
	"github.com/poskit/backoffice/internal/session"
	"github.com/poskit/backoffice/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"remote", cfg.Remote.BaseURL,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Restore the persisted session; a configured token overrides it
	sess, err := session.Load(cfg.Session.File)
	if err != nil {
		slog.Error("failed to load session", "file", cfg.Session.File, "error", err)
		os.Exit(1)
	}
	if cfg.Session.Token != "" {
		sess.SetToken(cfg.Session.Token)
	}
	if _, err := sess.Token(); err != nil {
		slog.Warn("no API token available, remote calls will be unauthenticated")
	}

	svc := client.New(client.Options{
		BaseURL:           cfg.Remote.BaseURL,
		Timeout:           cfg.Remote.Timeout,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Burst:             cfg.Remote.Burst,
		CacheTTL:          cfg.Cache.TTL,
	}, sess)

	ctx := context.Background()

	// Import history is optional; the service runs without it
	var history *audit.Store
	if cfg.Audit.DatabaseURL != "" {
		history, err = audit.Open(ctx, cfg.Audit.DatabaseURL, cfg.Audit.MaxConns)
		if err != nil {
			slog.Error("failed to open import history store", "error", err)
			os.Exit(1)
		}
		defer history.Close()
		slog.Info("import history enabled")
	} else {
		slog.Info("no DATABASE_URL set, import history disabled")
	}

	passes := importer.NewPassLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)

	server := web.NewServer(cfg, svc, passes, history)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight import passes finish before closing connections
		if passes.ActiveCount() > 0 {
			slog.Info("waiting for import passes to complete", "active", passes.ActiveCount())
			if err := passes.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("import passes did not complete in time", "error", err)
			} else {
				slog.Info("all import passes completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
