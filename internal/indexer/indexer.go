// Package indexer orchestrates extraction, checksumming and the two stores.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/extract"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

// Catalog is the durable record the indexer writes after the search index.
type Catalog interface {
	UpsertFile(ctx context.Context, doc models.IndexDocument) (displaced models.FileIdentity, err error)
	GetLastModifiedUTC(ctx context.Context, path string) (time.Time, bool, error)
	DeleteFile(ctx context.Context, path string) (models.FileIdentity, bool, error)
	Get(ctx context.Context, path string) (models.CatalogEntry, error)
	GetByID(ctx context.Context, id models.FileIdentity) (models.CatalogEntry, error)
	FindByChecksum(ctx context.Context, sum string) ([]models.CatalogEntry, error)
	Paths(ctx context.Context) ([]string, error)
	PathsUnder(ctx context.Context, dir string) ([]string, error)
}

// SearchIndex is the full-text index the indexer writes first.
type SearchIndex interface {
	Index(ctx context.Context, doc models.IndexDocument) error
	Delete(ctx context.Context, id models.FileIdentity) error
	Has(id models.FileIdentity) (bool, error)
	IDs(ctx context.Context) ([]models.FileIdentity, error)
}

// State is the run state of the indexer.
type State int32

const (
	StateIndexing State = iota
	StatePaused
)

func (s State) String() string {
	if s == StatePaused {
		return "paused"
	}
	return "indexing"
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "indexing":
		*s = StateIndexing
	case "paused":
		*s = StatePaused
	default:
		return fmt.Errorf("indexer: unknown state %q", b)
	}
	return nil
}

// Indexer keeps the catalog and the search index in step with the files under the roots.
type Indexer struct {
	catalog    Catalog
	search     SearchIndex
	extractors *extract.Registry
	roots      storage.Provider
	logger     *slog.Logger

	concurrency   int
	skipUnchanged bool
	listener      func(models.ChangeEvent)

	state atomic.Int32

	// writes is held shared by every store mutation and exclusively by the
	// orphan pass of Sweep; paths serializes mutations of one path.
	writes sync.RWMutex
	paths  pathLocks
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithConcurrency bounds the number of files ReindexAll processes at once.
func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithSkipUnchanged makes ReindexAll skip files whose mtime has not advanced
// past the cataloged value.
func WithSkipUnchanged(skip bool) Option {
	return func(ix *Indexer) { ix.skipUnchanged = skip }
}

// WithListener registers fn to receive change events.
func WithListener(fn func(models.ChangeEvent)) Option {
	return func(ix *Indexer) { ix.listener = fn }
}

// New creates an Indexer in the Indexing state.
func New(cat Catalog, search SearchIndex, extractors *extract.Registry, roots storage.Provider, logger *slog.Logger, opts ...Option) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Indexer{
		catalog:       cat,
		search:        search,
		extractors:    extractors,
		roots:         roots,
		logger:        logger,
		concurrency:   4,
		skipUnchanged: true,
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// Pause stops further indexing work. Idempotent.
func (ix *Indexer) Pause() {
	if ix.state.Swap(int32(StatePaused)) != int32(StatePaused) {
		ix.logger.Info("indexer: paused")
	}
}

// Resume re-enables indexing. Idempotent.
func (ix *Indexer) Resume() {
	if ix.state.Swap(int32(StateIndexing)) != int32(StateIndexing) {
		ix.logger.Info("indexer: resumed")
	}
}

// State returns the current run state.
func (ix *Indexer) State() State { return State(ix.state.Load()) }

func (ix *Indexer) paused() bool { return ix.State() == StatePaused }

// Supports reports whether a registered extractor handles path's extension.
func (ix *Indexer) Supports(p string) bool {
	return ix.extractors.Supports(storage.Extension(p))
}

// IndexFile extracts path and upserts it into the search index and then the
// catalog. It is a no-op while paused or when the file does not exist.
// Extraction failures leave both stores untouched. Calls for the same path
// are serialized.
func (ix *Indexer) IndexFile(ctx context.Context, p string) error {
	if ix.paused() {
		return nil
	}
	norm, err := storage.NormalizePath(p)
	if err != nil {
		return fmt.Errorf("indexer: %w: %v", apperr.ErrInvalidInput, err)
	}
	if ix.roots != nil && !ix.roots.Contains(norm) {
		return fmt.Errorf("indexer: %w: %s is outside the watched roots", apperr.ErrInvalidInput, norm)
	}
	defer ix.hold(norm)()

	info, err := os.Stat(norm)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("indexer: stat %s: %w", norm, err)
	}
	if info.IsDir() {
		return nil
	}

	doc, err := ix.buildDocument(ctx, norm, info)
	if err != nil {
		if !apperr.IsCanceled(err) {
			ix.emit(models.ChangeEvent{Kind: models.EventFailed, Path: norm, Error: err.Error()})
		}
		return err
	}

	// Nothing is written once cancellation has been requested; after the index
	// write the catalog write always completes so the two stay paired.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ix.search.Index(ctx, doc); err != nil {
		ix.emit(models.ChangeEvent{Kind: models.EventFailed, Path: norm, ID: doc.ID, Error: err.Error()})
		return err
	}
	displaced, err := ix.catalog.UpsertFile(context.WithoutCancel(ctx), doc)
	if err != nil {
		ix.emit(models.ChangeEvent{Kind: models.EventFailed, Path: norm, ID: doc.ID, Error: err.Error()})
		return err
	}
	if displaced != "" && displaced != doc.ID {
		if err := ix.search.Delete(context.WithoutCancel(ctx), displaced); err != nil {
			ix.logger.Warn("indexer: drop displaced document failed",
				slog.String("path", norm), slog.String("id", displaced.String()), slog.String("error", err.Error()))
		}
	}

	ix.logger.Debug("indexer: indexed", slog.String("path", norm), slog.String("id", doc.ID.String()))
	ix.emit(models.ChangeEvent{Kind: models.EventIndexed, Path: norm, ID: doc.ID})
	return nil
}

// hold takes the shared write lock and the lock for p.
func (ix *Indexer) hold(p string) (release func()) {
	ix.writes.RLock()
	unlock := ix.paths.lock(p)
	return func() {
		unlock()
		ix.writes.RUnlock()
	}
}

func (ix *Indexer) buildDocument(ctx context.Context, p string, info fs.FileInfo) (models.IndexDocument, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return models.IndexDocument{}, apperr.Extraction(p, err)
	}
	sum := checksum.Sum(data)
	ext := storage.Extension(p)

	var res extract.Result
	if e, ok := ix.extractors.For(ext); ok {
		r, err := e.Extract(ctx, p)
		if err != nil {
			return models.IndexDocument{}, apperr.Extraction(p, err)
		}
		res = *r
	}

	id, existing, err := ix.resolveIdentity(ctx, p, sum)
	if err != nil {
		return models.IndexDocument{}, err
	}

	modified := info.ModTime().UTC()
	created := modified
	switch {
	case res.Created != nil:
		created = res.Created.UTC()
	case existing != nil && !existing.CreatedUTC.IsZero():
		created = existing.CreatedUTC
	}

	meta := res.Metadata
	if res.Modified != nil {
		// The file system time stays authoritative; the embedded date is kept as metadata.
		meta = make(map[string]string, len(res.Metadata)+1)
		maps.Copy(meta, res.Metadata)
		meta["doc_modified"] = res.Modified.UTC().Format(time.RFC3339)
	}

	return models.IndexDocument{
		ID:          id,
		Path:        p,
		Name:        path.Base(p),
		Extension:   ext,
		Size:        info.Size(),
		CreatedUTC:  created,
		ModifiedUTC: modified,
		SHA256:      sum,
		Content:     res.Content,
		Author:      res.Author,
		Version:     res.Version,
		Metadata:    meta,
		Raw:         data,
	}, nil
}

// resolveIdentity returns the identity already cataloged for p, the identity
// of a moved file with the same content whose old path is gone, or a new one.
func (ix *Indexer) resolveIdentity(ctx context.Context, p, sum string) (models.FileIdentity, *models.CatalogEntry, error) {
	e, err := ix.catalog.Get(ctx, p)
	if err == nil {
		return e.ID, &e, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", nil, err
	}

	candidates, err := ix.catalog.FindByChecksum(ctx, sum)
	if err != nil {
		return "", nil, err
	}
	for _, c := range candidates {
		if c.Path == p {
			continue
		}
		if _, err := os.Stat(c.Path); errors.Is(err, fs.ErrNotExist) {
			ix.logger.Info("indexer: move detected", slog.String("from", c.Path), slog.String("to", p))
			return c.ID, &c, nil
		}
	}
	return models.FileIdentity(uuid.NewString()), nil, nil
}

func (ix *Indexer) emit(ev models.ChangeEvent) {
	if ix.listener != nil {
		ev.At = time.Now().UTC()
		ix.listener(ev)
	}
}
