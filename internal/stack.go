package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/docservice"
	"github.com/starford/sowilo/internal/extract"
	"github.com/starford/sowilo/internal/indexer"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/search"
	"github.com/starford/sowilo/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the structured JSON logger and installs it as the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// stack holds the stores and the pipeline shared by every command.
type stack struct {
	catalog *catalog.Catalog
	engine  *search.Engine
	roots   *storage.Roots
	indexer *indexer.Indexer
}

func openStack(ctx context.Context, cfg *Config, logger *slog.Logger, listener func(models.ChangeEvent)) (*stack, error) {
	cat, err := catalog.Open(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	engine, err := search.Open(cfg.Search.Path, cfg.Search.EngineConfig(), logger)
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("init search index: %w", err)
	}

	roots := storage.NewRoots(cfg.Watch.Roots)
	opts := []indexer.Option{
		indexer.WithConcurrency(cfg.Indexer.Concurrency),
		indexer.WithSkipUnchanged(cfg.Indexer.SkipUnchanged),
	}
	if listener != nil {
		opts = append(opts, indexer.WithListener(listener))
	}
	ix := indexer.New(cat, engine, extract.Default(), roots, logger, opts...)

	return &stack{catalog: cat, engine: engine, roots: roots, indexer: ix}, nil
}

func (s *stack) service(opts ...docservice.Option) *docservice.Service {
	return docservice.NewService(s.catalog, s.engine, s.indexer, s.roots, opts...)
}

// Close commits the search index and closes both stores.
func (s *stack) Close() error {
	return errors.Join(s.engine.Close(), s.catalog.Close())
}

// missingRoots returns the configured roots that are not existing directories.
func missingRoots(roots []string) []string {
	var missing []string
	for _, root := range roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			missing = append(missing, root)
		}
	}
	return missing
}
