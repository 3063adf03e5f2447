package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/sowilo/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/search", h.Search)

	r.Get("/files", h.GetFile)
	r.Get("/files/content", h.FileContent)

	r.Get("/status", h.Status)
	r.Post("/index", h.IndexFile)
	r.Post("/reindex", h.Reindex)
	r.Post("/optimize", h.Optimize)
	r.Put("/roots", h.UpdateRoots)

	r.Route("/indexer", func(r chi.Router) {
		r.Get("/state", h.IndexerState)
		r.Post("/pause", h.Pause)
		r.Post("/resume", h.Resume)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
