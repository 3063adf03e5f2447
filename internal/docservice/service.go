// Package docservice is the application layer shared by the HTTP API, the MCP
// server and the CLI.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/indexer"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/query"
	"github.com/starford/sowilo/internal/search"
	"github.com/starford/sowilo/internal/storage"
)

// SearchRequest is a raw search box input plus structured overrides.
type SearchRequest struct {
	Query    string            `json:"query"`
	Fuzzy    bool              `json:"fuzzy"`
	Filters  map[string]string `json:"filters,omitempty"`
	From     *time.Time        `json:"from,omitempty"`
	To       *time.Time        `json:"to,omitempty"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Sort     string            `json:"sort,omitempty"`
}

// SearchResponse is one page of results together with the parsed query.
type SearchResponse struct {
	models.SearchResult
	FreeText string            `json:"free_text"`
	Filters  map[string]string `json:"filters"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	// Ignored lists from:/to: tokens whose value was not a valid date.
	Ignored []string `json:"ignored,omitempty"`
}

// FileDetail is a catalog entry plus its search index presence.
type FileDetail struct {
	models.CatalogEntry
	Searchable bool `json:"searchable"`
	// Stale is set when the file on disk is gone or no longer matches SHA256.
	Stale bool `json:"stale"`
}

// Status summarises the running service.
type Status struct {
	State      indexer.State `json:"state"`
	Files      int           `json:"files"`
	Documents  uint64        `json:"documents"`
	Roots      []string      `json:"roots"`
	Queue      int           `json:"queue"`
	LastCommit *time.Time    `json:"last_commit,omitempty"`
}

// ReindexReport combines the consistency sweep and the full walk.
type ReindexReport struct {
	Sweep   indexer.SweepStats   `json:"sweep"`
	Reindex indexer.ReindexStats `json:"reindex"`
}

// Watcher is the part of the change watcher the service drives.
type Watcher interface {
	UpdateRoots(paths []string) error
	QueueLen() int
}

// Service coordinates the catalog, the search engine, the indexer and the watcher.
type Service struct {
	catalog  *catalog.Catalog
	engine   *search.Engine
	indexer  *indexer.Indexer
	roots    storage.Provider
	watcher  Watcher
	pageSize int
	maxPage  int
}

// Option configures a Service.
type Option func(*Service)

// WithWatcher attaches the change watcher used by UpdateRoots.
func WithWatcher(w Watcher) Option {
	return func(s *Service) { s.watcher = w }
}

// WithPaging sets the default and the maximum page size.
func WithPaging(def, limit int) Option {
	return func(s *Service) {
		if def > 0 {
			s.pageSize = def
		}
		if limit > 0 {
			s.maxPage = limit
		}
	}
}

// NewService creates a document service.
func NewService(cat *catalog.Catalog, engine *search.Engine, ix *indexer.Indexer, roots storage.Provider, opts ...Option) *Service {
	s := &Service{
		catalog:  cat,
		engine:   engine,
		indexer:  ix,
		roots:    roots,
		pageSize: models.DefaultPageSize,
		maxPage:  models.MaxPageSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search parses req.Query with the mini-language and runs it. Structured
// fields in req override what the mini-language produced.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q, ignored := query.Parse(req.Query)
	q = q.WithFuzzy(req.Fuzzy)
	for k, v := range req.Filters {
		q = q.WithFilter(k, v)
	}
	if req.From != nil || req.To != nil {
		from, to := q.FromUTC, q.ToUTC
		if req.From != nil {
			from = req.From
		}
		if req.To != nil {
			to = req.To
		}
		q = q.WithRange(from, to)
	}

	page, size := req.Page, req.PageSize
	if page <= 0 {
		page = models.DefaultPage
	}
	if size <= 0 {
		size = s.pageSize
	}
	if size > s.maxPage {
		size = s.maxPage
	}
	q = q.WithPage(page, size)
	if req.Sort != "" {
		q = q.WithSort(req.Sort)
	}

	res, err := s.engine.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		SearchResult: res,
		FreeText:     q.FreeText,
		Filters:      q.Filters.Map(),
		Page:         q.Page,
		PageSize:     q.PageSize,
		Ignored:      ignored,
	}, nil
}

// GetFile looks a file up by path or, failing that, by identity.
func (s *Service) GetFile(ctx context.Context, ref string) (*FileDetail, error) {
	e, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	ok, err := s.engine.Has(e.ID)
	if err != nil {
		return nil, err
	}
	sum, err := checksum.SumFile(e.Path)
	return &FileDetail{CatalogEntry: e, Searchable: ok, Stale: err != nil || sum != e.SHA256}, nil
}

// FileContent returns the cataloged entry and the raw bytes stored for it.
func (s *Service) FileContent(ctx context.Context, ref string) (models.CatalogEntry, []byte, error) {
	e, err := s.lookup(ctx, ref)
	if err != nil {
		return e, nil, err
	}
	data, err := s.catalog.Content(ctx, e.ID)
	return e, data, err
}

func (s *Service) lookup(ctx context.Context, ref string) (models.CatalogEntry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.CatalogEntry{}, fmt.Errorf("%w: empty file reference", apperr.ErrInvalidInput)
	}
	if strings.ContainsAny(ref, `/\`) {
		p, err := storage.NormalizePath(ref)
		if err != nil {
			return models.CatalogEntry{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		return s.catalog.Get(ctx, p)
	}
	return s.catalog.GetByID(ctx, models.FileIdentity(ref))
}

// IndexFile indexes one path now, bypassing the watcher queue.
func (s *Service) IndexFile(ctx context.Context, path string) (*FileDetail, error) {
	if err := s.indexer.IndexFile(ctx, path); err != nil {
		return nil, err
	}
	if s.indexer.State() == indexer.StatePaused {
		return nil, nil
	}
	d, err := s.GetFile(ctx, path)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return d, err
}

// Reindex runs the consistency sweep and then a full walk of the roots.
func (s *Service) Reindex(ctx context.Context) (ReindexReport, error) {
	var rep ReindexReport
	sweep, err := s.indexer.Sweep(ctx)
	rep.Sweep = sweep
	if err != nil {
		return rep, err
	}
	rep.Reindex, err = s.indexer.ReindexAll(ctx)
	return rep, err
}

// Pause stops indexing.
func (s *Service) Pause() indexer.State {
	s.indexer.Pause()
	return s.indexer.State()
}

// Resume restarts indexing.
func (s *Service) Resume() indexer.State {
	s.indexer.Resume()
	return s.indexer.State()
}

// Optimize compacts the search index.
func (s *Service) Optimize(ctx context.Context) error {
	return s.engine.Optimize(ctx)
}

// UpdateRoots replaces the watched roots.
func (s *Service) UpdateRoots(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: at least one root is required", apperr.ErrInvalidInput)
	}
	if s.watcher == nil {
		return nil, fmt.Errorf("%w: watcher is not running", apperr.ErrInvalidInput)
	}
	if err := s.watcher.UpdateRoots(paths); err != nil {
		return nil, err
	}
	return s.roots.Roots(), nil
}

// Status reports counts and state.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	files, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.engine.Count()
	if err != nil {
		return nil, err
	}
	st := &Status{
		State:     s.indexer.State(),
		Files:     files,
		Documents: docs,
		Roots:     s.roots.Roots(),
	}
	if s.watcher != nil {
		st.Queue = s.watcher.QueueLen()
	}
	if lc := s.engine.LastCommit(); !lc.IsZero() {
		st.LastCommit = &lc
	}
	return st, nil
}
