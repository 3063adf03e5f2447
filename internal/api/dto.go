package api

import (
	"github.com/starford/sowilo/internal/docservice"
	"github.com/starford/sowilo/internal/indexer"
)

// SearchResponse is one page of search results (aliased from the domain layer).
type SearchResponse = docservice.SearchResponse

// FileDetail is a catalog entry with index presence (aliased from the domain layer).
type FileDetail = docservice.FileDetail

// StatusResponse summarises the service (aliased from the domain layer).
type StatusResponse = docservice.Status

// ReindexResponse reports a sweep plus full walk (aliased from the domain layer).
type ReindexResponse = docservice.ReindexReport

// IndexRequest is the request body for indexing a single path.
type IndexRequest struct {
	Path string `json:"path" example:"/data/docs/report.pdf" validate:"required"`
}

// IndexResponse reports the outcome of an index request.
type IndexResponse struct {
	Indexed bool        `json:"indexed" example:"true"`
	File    *FileDetail `json:"file,omitempty"`
}

// StateResponse wraps the indexer state.
type StateResponse struct {
	State indexer.State `json:"state" swaggertype:"string" example:"indexing" validate:"required"`
}

// RootsRequest is the request body for replacing the watched roots.
type RootsRequest struct {
	Roots []string `json:"roots" validate:"required"`
}

// RootsResponse lists the effective roots after normalisation.
type RootsResponse struct {
	Roots []string `json:"roots" validate:"required"`
}
