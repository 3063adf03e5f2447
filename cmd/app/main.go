package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sowilo/internal"
	"github.com/starford/sowilo/internal/docservice"
	pkgconfig "github.com/starford/sowilo/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if roots := cmd.StringSlice("root"); len(roots) > 0 {
		cfg.Watch.Roots = roots
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func reindex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Reindex(ctx, os.Stdout, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func search(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := docservice.SearchRequest{
		Query:    strings.Join(cmd.Args().Slice(), " "),
		Fuzzy:    cmd.Bool("fuzzy"),
		Page:     int(cmd.Int("page")),
		PageSize: int(cmd.Int("page-size")),
		Sort:     cmd.String("sort"),
	}
	return internal.Search(ctx, os.Stdout, req, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version), internal.WithLogOutput(os.Stderr))
}

func main() {
	cmd := &cli.Command{
		Name:    "sowilo",
		Usage:   "Watched-folder document search with diacritics-insensitive full-text queries",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringSliceFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Watched root folder, overrides watch.roots (repeatable)",
				Sources: cli.EnvVars("SOWILO_ROOTS"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the roots and serve the HTTP API",
				Action: serve,
			},
			{
				Name:   "reindex",
				Usage:  "Sweep stale entries and reindex every root once",
				Action: reindex,
			},
			{
				Name:      "search",
				Usage:     "Query the index and print one page of results as JSON",
				ArgsUsage: "<query>",
				Action:    search,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "fuzzy", Aliases: []string{"f"}, Usage: "Match words one edit away"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "1-based page number"},
					&cli.IntFlag{Name: "page-size", Usage: "Hits per page"},
					&cli.StringFlag{Name: "sort", Usage: "relevance, modified, -modified, name, size or -size"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
