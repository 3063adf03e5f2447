// Package search maintains the near-real-time full-text index of cataloged files.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/index/scorch/mergeplan"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

// Defaults applied to zero Config values.
const (
	DefaultContentCap    = 1000
	DefaultCommitEvery   = 1000
	DefaultCommitTimeout = 30 * time.Second
	DefaultSnippetLength = 200
	DefaultFacetSize     = 10
)

var commitKey = []byte("_sowilo_last_commit")

var errCommitTimeout = errors.New("commit timed out")

// Config tunes the engine.
type Config struct {
	ContentCap    int           // max characters of content kept in the index
	CommitEvery   int           // pending writes that trigger a durable commit
	CommitTimeout time.Duration // bound on waiting for a commit to persist
	SnippetLength int           // fallback snippet length in characters
	FacetSize     int
}

func (c Config) withDefaults() Config {
	if c.ContentCap <= 0 {
		c.ContentCap = DefaultContentCap
	}
	if c.CommitEvery <= 0 {
		c.CommitEvery = DefaultCommitEvery
	}
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = DefaultCommitTimeout
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = DefaultSnippetLength
	}
	if c.FacetSize <= 0 {
		c.FacetSize = DefaultFacetSize
	}
	return c
}

// Engine is a bleve/scorch index with one serialized writer and concurrent readers.
// Writes are visible to the next query immediately; durable commits are batched.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex // guards idx against Close
	idx    bleve.Index
	closed bool

	writeMu    sync.Mutex
	pending    int
	lastCommit time.Time
}

// Open opens the index at path, creating it when it does not exist yet.
func Open(path string, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := bleve.OpenUsing(path, indexConfig())
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		m, merr := buildIndexMapping()
		if merr != nil {
			return nil, fmt.Errorf("search: build mapping: %w", merr)
		}
		idx, err = bleve.NewUsing(path, m, scorch.Name, scorch.Name, indexConfig())
		if err != nil {
			return nil, fmt.Errorf("search: create index: %w", err)
		}
		logger.Info("search: created index", slog.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("search: open index: %w", err)
	}
	return &Engine{cfg: cfg.withDefaults(), logger: logger, idx: idx}, nil
}

// unsafe_batch makes a write visible as soon as it is introduced, without
// waiting for it to be persisted; commit() provides the durable point.
func indexConfig() map[string]interface{} {
	return map[string]interface{}{
		"unsafe_batch": true,
	}
}

// Index upserts doc under its identity.
func (e *Engine) Index(ctx context.Context, doc models.IndexDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.write("index", doc.ID, func(idx bleve.Index) error {
		return idx.Index(doc.ID.String(), toDocument(doc, e.cfg.ContentCap))
	})
}

// Delete removes the document for id. Deleting an unknown id is not an error.
func (e *Engine) Delete(ctx context.Context, id models.FileIdentity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.write("delete", id, func(idx bleve.Index) error {
		return idx.Delete(id.String())
	})
}

func (e *Engine) write(op string, id models.FileIdentity, fn func(bleve.Index) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return &apperr.SearchWriteError{Op: op, ID: id.String(), Err: apperr.ErrClosed}
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := fn(e.idx); err != nil {
		return &apperr.SearchWriteError{Op: op, ID: id.String(), Err: err}
	}
	e.pending++
	if e.pending >= e.cfg.CommitEvery {
		if err := e.commitLocked(context.Background()); err != nil {
			return &apperr.SearchWriteError{Op: "commit", ID: id.String(), Err: err}
		}
	}
	return nil
}

// Flush durably commits every pending write.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return apperr.ErrClosed
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.commitLocked(ctx); err != nil {
		return &apperr.SearchWriteError{Op: "commit", Err: err}
	}
	return nil
}

// commitLocked writes a marker batch and waits until scorch reports it persisted,
// which implies every earlier batch is persisted too. writeMu must be held.
func (e *Engine) commitLocked(ctx context.Context) error {
	now := time.Now().UTC()
	b := e.idx.NewBatch()
	b.SetInternal(commitKey, []byte(now.Format(time.RFC3339Nano)))

	done := make(chan error, 1)
	b.SetPersistedCallback(func(err error) {
		select {
		case done <- err:
		default:
		}
	})
	if err := e.idx.Batch(b); err != nil {
		return err
	}

	timer := time.NewTimer(e.cfg.CommitTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errCommitTimeout
	}

	e.logger.Debug("search: committed", slog.Int("writes", e.pending))
	e.pending = 0
	e.lastCommit = now
	return nil
}

type forceMerger interface {
	ForceMerge(ctx context.Context, mo *mergeplan.MergePlanOptions) error
}

// Optimize commits pending writes and compacts the index into as few segments as possible.
func (e *Engine) Optimize(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return apperr.ErrClosed
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.commitLocked(ctx); err != nil {
		return &apperr.SearchWriteError{Op: "commit", Err: err}
	}
	adv, err := e.idx.Advanced()
	if err != nil {
		return fmt.Errorf("search: optimize: %w", err)
	}
	fm, ok := adv.(forceMerger)
	if !ok {
		e.logger.Debug("search: optimize not supported by index backend")
		return nil
	}
	start := time.Now()
	if err := fm.ForceMerge(ctx, nil); err != nil {
		if apperr.IsCanceled(err) {
			return err
		}
		return fmt.Errorf("search: optimize: %w", err)
	}
	e.logger.Info("search: optimized", slog.Duration("took", time.Since(start)))
	return nil
}

// Count returns the number of indexed documents.
func (e *Engine) Count() (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return 0, apperr.ErrClosed
	}
	return e.idx.DocCount()
}

// Has reports whether a document exists for id.
func (e *Engine) Has(id models.FileIdentity) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false, apperr.ErrClosed
	}
	d, err := e.idx.Document(id.String())
	if err != nil {
		return false, fmt.Errorf("search: lookup %s: %w", id, err)
	}
	return d != nil, nil
}

// IDs returns the identity of every indexed document.
func (e *Engine) IDs(ctx context.Context) ([]models.FileIdentity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, apperr.ErrClosed
	}
	const page = 1000
	var out []models.FileIdentity
	for from := 0; ; from += page {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), page, from, false)
		req.SortBy([]string{"_id"})
		res, err := e.idx.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("search: list ids: %w", err)
		}
		for _, h := range res.Hits {
			out = append(out, models.FileIdentity(h.ID))
		}
		if len(res.Hits) < page {
			return out, nil
		}
	}
}

// LastCommit returns the time of the last durable commit, zero if none happened yet.
func (e *Engine) LastCommit() time.Time {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.lastCommit
}

// Close commits pending writes and closes the index. Further calls are no-ops.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.writeMu.Lock()
	var commitErr error
	if e.pending > 0 {
		commitErr = e.commitLocked(context.Background())
	}
	e.writeMu.Unlock()

	if err := e.idx.Close(); err != nil {
		return fmt.Errorf("search: close: %w", err)
	}
	if commitErr != nil {
		return fmt.Errorf("search: final commit: %w", commitErr)
	}
	return nil
}
