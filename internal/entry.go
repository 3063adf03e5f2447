// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/api"
	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/docservice"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/watcher"
)

// errShutdown cancels the run group once a shutdown has been requested.
var errShutdown = errors.New("shutdown requested")

// Run starts the watcher and the HTTP server and blocks until a shutdown
// signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()
	if cfg.Watch.ShutdownTimeout <= 0 {
		cfg.Watch.ShutdownTimeout = 10 * time.Second
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("roots", strings.Join(cfg.Watch.Roots, ",")),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("search_path", cfg.Search.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Missing roots are skipped by the watcher and the sweep.
	for _, root := range missingRoots(cfg.Watch.Roots) {
		logger.Warn("root does not exist", slog.String("root", root))
	}

	// SSE broker receives every indexer change event.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	st, err := openStack(ctx, cfg, logger, broker.PublishChange)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close stores failed", slog.String("error", err.Error()))
		}
	}()

	fw := watcher.New(st.indexer, st.roots, logger,
		watcher.WithQueueSize(cfg.Watch.QueueSize),
		watcher.WithReconcileDelay(cfg.Watch.ReconcileDelay))

	svc := st.service(
		docservice.WithWatcher(fw),
		docservice.WithPaging(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start monitoring before the initial pass so nothing written meanwhile is missed.
	if err := fw.Start(gCtx); err != nil {
		fw.Shutdown(cfg.Watch.ShutdownTimeout)
		return fmt.Errorf("start watcher: %w", err)
	}

	// Initial consistency pass.
	g.Go(func() error {
		rep, err := svc.Reindex(gCtx)
		if err != nil {
			if apperr.IsCanceled(err) {
				return nil
			}
			logger.Warn("initial reindex failed", slog.String("error", err.Error()))
			return nil
		}
		logger.Info("initial reindex done",
			slog.Int("removed_entries", rep.Sweep.RemovedEntries),
			slog.Int64("indexed", rep.Reindex.Indexed),
			slog.Int64("skipped", rep.Reindex.Skipped),
			slog.Int64("failed", rep.Reindex.Failed))
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Watch.ShutdownTimeout)
		defer cancel()
		// SSE streams never end on their own; closing the broker releases them.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		fw.Shutdown(cfg.Watch.ShutdownTimeout)

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
