package indexer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/starford/sowilo/internal/apperr"
)

// SweepStats summarises one consistency pass.
type SweepStats struct {
	RemovedEntries   int `json:"removed_entries"`
	RemovedDocuments int `json:"removed_documents"`
	Reindexed        int `json:"reindexed"`
}

// Sweep reconciles the catalog and the search index after a crash between the
// two writes or changes made while the service was down:
//   - catalog entries whose file is gone or outside the roots are removed from both stores
//   - index documents without a catalog entry are deleted
//   - catalog entries missing from the index are re-indexed
func (ix *Indexer) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	paths, err := ix.catalog.Paths(ctx)
	if err != nil {
		return stats, err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		_, statErr := os.Stat(p)
		if errors.Is(statErr, fs.ErrNotExist) || !ix.roots.Contains(p) {
			if err := ix.removePath(ctx, p); err != nil {
				return stats, err
			}
			stats.RemovedEntries++
			continue
		}

		e, err := ix.catalog.Get(ctx, p)
		if err != nil {
			continue
		}
		ok, err := ix.search.Has(e.ID)
		if err != nil {
			return stats, err
		}
		if ok || ix.paused() {
			continue
		}
		if err := ix.IndexFile(ctx, p); err != nil {
			if apperr.IsCanceled(err) {
				return stats, err
			}
			ix.logger.Warn("indexer: sweep reindex failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Reindexed++
	}

	// No write may sit between its index and catalog steps while orphans are
	// collected, or its fresh document would look orphaned.
	ix.writes.Lock()
	defer ix.writes.Unlock()

	ids, err := ix.search.IDs(ctx)
	if err != nil {
		return stats, err
	}
	for _, id := range ids {
		if _, err := ix.catalog.GetByID(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err := ix.search.Delete(ctx, id); err != nil {
			return stats, err
		}
		stats.RemovedDocuments++
	}

	ix.logger.Info("indexer: sweep complete",
		slog.Int("removed_entries", stats.RemovedEntries),
		slog.Int("removed_documents", stats.RemovedDocuments),
		slog.Int("reindexed", stats.Reindexed),
	)
	return stats, nil
}
