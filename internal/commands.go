package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/sowilo/internal/docservice"
	"github.com/starford/sowilo/internal/mcpserver"
)

// Reindex runs one consistency sweep and full walk over the configured roots,
// then writes the report to out as JSON.
func Reindex(ctx context.Context, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	st, err := openStack(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := st.service().Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if err := st.engine.Optimize(ctx); err != nil {
		logger.Warn("optimize after reindex failed", slog.String("error", err.Error()))
	}
	return writeIndented(out, rep)
}

// Search runs one query against the existing index and writes the result page to out.
func Search(ctx context.Context, out io.Writer, req docservice.SearchRequest, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	st, err := openStack(ctx, cfg, app.logger(), nil)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := st.service(docservice.WithPaging(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize))
	res, err := svc.Search(ctx, req)
	if err != nil {
		return err
	}
	return writeIndented(out, res)
}

// ServeMCP exposes the index over the MCP stdio transport until stdin closes.
// Files are indexed on demand through the index_file tool; no watcher runs.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	st, err := openStack(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := st.service(docservice.WithPaging(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize))
	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}

func writeIndented(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
