package indexer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

// ReindexStats summarises one ReindexAll pass.
type ReindexStats struct {
	Seen    int64 `json:"seen"`
	Indexed int64 `json:"indexed"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// ReindexAll walks every root and indexes each file with a registered
// extractor. Per-file failures are logged and counted; only cancellation
// stops the pass. Pausing mid-pass skips the remaining files.
func (ix *Indexer) ReindexAll(ctx context.Context) (ReindexStats, error) {
	var seen, indexed, skipped, failed atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	walkErr := ix.roots.Walk(gctx, func(p string, info fs.FileInfo) error {
		if !ix.Supports(p) {
			return nil
		}
		seen.Add(1)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if ix.paused() {
				skipped.Add(1)
				return nil
			}
			if ix.skipUnchanged && ix.unchanged(gctx, p, info) {
				skipped.Add(1)
				return nil
			}
			if err := ix.IndexFile(gctx, p); err != nil {
				if apperr.IsCanceled(err) {
					return err
				}
				failed.Add(1)
				ix.logger.Warn("indexer: index failed", slog.String("path", p), slog.String("error", err.Error()))
				return nil
			}
			indexed.Add(1)
			return nil
		})
		return nil
	})
	waitErr := g.Wait()

	stats := ReindexStats{Seen: seen.Load(), Indexed: indexed.Load(), Skipped: skipped.Load(), Failed: failed.Load()}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if err := errors.Join(walkErr, waitErr); err != nil {
		return stats, err
	}
	ix.logger.Info("indexer: reindex complete",
		slog.Int64("seen", stats.Seen),
		slog.Int64("indexed", stats.Indexed),
		slog.Int64("skipped", stats.Skipped),
		slog.Int64("failed", stats.Failed),
		slog.Duration("took", time.Since(start)),
	)
	return stats, nil
}

func (ix *Indexer) unchanged(ctx context.Context, p string, info fs.FileInfo) bool {
	stored, ok, err := ix.catalog.GetLastModifiedUTC(ctx, p)
	if err != nil || !ok {
		return false
	}
	return !info.ModTime().UTC().After(stored)
}

// RemoveMissing drops every path in paths that no longer exists on disk from
// the catalog and then from the search index. A missing directory removes
// every entry below it.
func (ix *Indexer) RemoveMissing(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := ix.removePath(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		under, err := ix.catalog.PathsUnder(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, child := range under {
			if err := ix.removePath(ctx, child); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (ix *Indexer) removePath(ctx context.Context, p string) error {
	defer ix.hold(p)()
	id, ok, err := ix.catalog.DeleteFile(ctx, p)
	if err != nil || !ok {
		return err
	}
	if err := ix.search.Delete(context.WithoutCancel(ctx), id); err != nil {
		return err
	}
	ix.logger.Debug("indexer: removed", slog.String("path", p), slog.String("id", id.String()))
	ix.emit(models.ChangeEvent{Kind: models.EventDeleted, Path: p, ID: id})
	return nil
}
