package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles GET /api/search.
//
//	@Summary		Search indexed files
//	@Description	q accepts free text plus key:value filters and from:/to: dates.
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	false	"Search query"
//	@Param			fuzzy		query		bool	false	"Enable fuzzy matching"
//	@Param			page		query		int		false	"1-based page"
//	@Param			page_size	query		int		false	"Hits per page"
//	@Param			sort		query		string	false	"Sort order"	Enums(relevance, modified, -modified, name, size, -size)
//	@Param			from		query		string	false	"Modified at or after (RFC3339)"
//	@Param			to			query		string	false	"Modified at or before (RFC3339)"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := docservice.SearchRequest{
		Query: q.Get("q"),
		Sort:  q.Get("sort"),
	}
	var err error
	if req.Fuzzy, err = boolParam(q.Get("fuzzy")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("fuzzy must be a boolean"))
		return
	}
	if req.Page, err = intParam(q.Get("page")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	if req.PageSize, err = intParam(q.Get("page_size")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page_size must be an integer"))
		return
	}
	if req.From, err = timeParam(q.Get("from")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("from must be RFC3339"))
		return
	}
	if req.To, err = timeParam(q.Get("to")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("to must be RFC3339"))
		return
	}

	res, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetFile handles GET /api/files.
//
//	@Summary		Get a cataloged file by path or id
//	@Tags			files
//	@Produce		json
//	@Param			path	query		string	false	"Absolute file path"
//	@Param			id		query		string	false	"File identity"
//	@Success		200		{object}	FileDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	ref, ok := fileRef(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetFile(r.Context(), ref)
	if err != nil {
		writeError(w, "get file", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// FileContent handles GET /api/files/content.
//
//	@Summary		Download the stored bytes of a cataloged file
//	@Tags			files
//	@Produce		octet-stream
//	@Param			path	query		string	false	"Absolute file path"
//	@Param			id		query		string	false	"File identity"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/content [get]
func (h *Handler) FileContent(w http.ResponseWriter, r *http.Request) {
	ref, ok := fileRef(w, r)
	if !ok {
		return
	}
	e, data, err := h.svc.FileContent(r.Context(), ref)
	if err != nil {
		writeError(w, "file content", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(e.Name))
	w.Header().Set("ETag", strconv.Quote(e.SHA256))
	w.Header().Set("Last-Modified", e.ModifiedUTC.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// IndexFile handles POST /api/index.
//
//	@Summary		Index one file immediately
//	@Tags			indexer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		IndexRequest	true	"File to index"
//	@Success		200		{object}	IndexResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/index [post]
func (h *Handler) IndexFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	d, err := h.svc.IndexFile(r.Context(), req.Path)
	if err != nil {
		writeError(w, "index file", err)
		return
	}
	writeJSON(w, http.StatusOK, IndexResponse{Indexed: d != nil, File: d})
}

// Reindex handles POST /api/reindex.
//
//	@Summary		Sweep stale entries and reindex every watched root
//	@Tags			indexer
//	@Produce		json
//	@Success		200	{object}	ReindexResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Reindex(r.Context())
	if err != nil {
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Optimize handles POST /api/optimize.
//
//	@Summary	Compact the search index
//	@Tags		indexer
//	@Success	204
//	@Security	BearerAuth
//	@Router		/optimize [post]
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Optimize(r.Context()); err != nil {
		writeError(w, "optimize", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IndexerState handles GET /api/indexer/state.
//
//	@Summary	Current indexer state
//	@Tags		indexer
//	@Produce	json
//	@Success	200	{object}	StateResponse
//	@Security	BearerAuth
//	@Router		/indexer/state [get]
func (h *Handler) IndexerState(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "indexer state", err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: st.State})
}

// Pause handles POST /api/indexer/pause.
//
//	@Summary	Pause indexing
//	@Tags		indexer
//	@Produce	json
//	@Success	200	{object}	StateResponse
//	@Security	BearerAuth
//	@Router		/indexer/pause [post]
func (h *Handler) Pause(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{State: h.svc.Pause()})
}

// Resume handles POST /api/indexer/resume.
//
//	@Summary	Resume indexing
//	@Tags		indexer
//	@Produce	json
//	@Success	200	{object}	StateResponse
//	@Security	BearerAuth
//	@Router		/indexer/resume [post]
func (h *Handler) Resume(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{State: h.svc.Resume()})
}

// Status handles GET /api/status.
//
//	@Summary	Service status
//	@Tags		indexer
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Security	BearerAuth
//	@Router		/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateRoots handles PUT /api/roots.
//
//	@Summary		Replace the watched root folders
//	@Tags			indexer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RootsRequest	true	"New roots"
//	@Success		200		{object}	RootsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roots [put]
func (h *Handler) UpdateRoots(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RootsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	roots, err := h.svc.UpdateRoots(req.Roots)
	if err != nil {
		writeError(w, "update roots", err)
		return
	}
	writeJSON(w, http.StatusOK, RootsResponse{Roots: roots})
}

// fileRef reads ?path= or ?id=, writing a 400 when neither is present.
func fileRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query()
	ref := q.Get("path")
	if ref == "" {
		ref = q.Get("id")
	}
	if strings.TrimSpace(ref) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path or id is required"))
		return "", false
	}
	return ref, true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func boolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func timeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
