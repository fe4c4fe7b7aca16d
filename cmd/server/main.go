// main is the entry point for the Nearby API server.
//
// It reads configuration from the environment, opens the configured
// database, starts the HTTP API and the background event sweeper, and
// shuts everything down cleanly on SIGINT/SIGTERM.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: how this file fits into the project
// ────────────────────────────────────────────────────────────────────
// This file is the "composition root": the single place where the
// independent packages (config, store, notify, handlers) are wired
// together. Every other package receives its dependencies as arguments,
// so each one can be tested in isolation with an in-memory store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Elizabethomito/nearby/internal/config"
	"github.com/Elizabethomito/nearby/internal/db"
	"github.com/Elizabethomito/nearby/internal/handlers"
	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/notify"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/store/postgres"
	"github.com/Elizabethomito/nearby/internal/store/sqlite"
	"github.com/Elizabethomito/nearby/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Configuration ────────────────────────────────────────────────
	// .env is optional; real environment variables win over it.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Tracing ──────────────────────────────────────────────────────
	// Without OTEL_ENDPOINT the global provider stays a no-op.
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("flush traces", "error", err)
		}
	}()

	// ── Database ─────────────────────────────────────────────────────
	// Both drivers run their CREATE TABLE IF NOT EXISTS migrations on open.
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// ── Push notifications ───────────────────────────────────────────
	// Pushes are fire-and-forget: the dispatcher sends them on their own
	// goroutines and only logs failures. Wait drains them on shutdown.
	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.PushEndpoint != "" {
		notifier = notify.NewHTTPNotifier(cfg.PushEndpoint, cfg.PushServerKey, cfg.PushTimeout)
	}
	dispatcher := notify.NewDispatcher(notifier, logger, cfg.PushTimeout)
	defer dispatcher.Wait()

	// ── Handlers ─────────────────────────────────────────────────────
	srv := handlers.New(st, cfg.JWTSecret, handlers.Options{
		OrganizerConsumesSlot: cfg.OrganizerConsumesSlot,
		DefaultTimezone:       cfg.DefaultTimezone,
		Signaller:             dispatcher,
		Logger:                logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run ──────────────────────────────────────────────────────────
	// The HTTP server and the sweeper share one errgroup: if either fails
	// the group context is cancelled and the other stops too.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Nearby API listening", "addr", cfg.Addr, "driver", cfg.DatabaseDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.SweepInterval > 0 {
		g.Go(func() error {
			return srv.Sweeper.Run(gctx, cfg.SweepInterval)
		})
	} else {
		logger.Warn("background sweep disabled; use POST /api/admin/sweep")
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// openStore returns the store for cfg.DatabaseDriver.
func openStore(cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		s, err := postgres.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return s, nil
	default:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = db.DefaultDSN
		}
		s, err := sqlite.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return s, nil
	}
}
