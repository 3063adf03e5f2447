// Package models defines the domain types for Sowilo.
package models

import "time"

// FileIdentity is the stable key minted the first time a physical file is cataloged.
type FileIdentity string

// String returns the identity as a plain string.
func (id FileIdentity) String() string { return string(id) }

// CatalogEntry is the persisted record of one watched file.
type CatalogEntry struct {
	ID          FileIdentity `json:"id"`
	Path        string       `json:"path"`
	Name        string       `json:"name"`
	Extension   string       `json:"extension"`
	Size        int64        `json:"size"`
	CreatedUTC  time.Time    `json:"created_utc"`
	ModifiedUTC time.Time    `json:"modified_utc"`
	SHA256      string       `json:"sha256"`
	Author      string       `json:"author,omitempty"`
	IndexedUTC  time.Time    `json:"indexed_utc"`
	Content     []byte       `json:"-"`
}

// IndexDocument is the unit of upsert handed to the catalog and the search engine.
type IndexDocument struct {
	ID          FileIdentity
	Path        string
	Name        string
	Extension   string
	Size        int64
	CreatedUTC  time.Time
	ModifiedUTC time.Time
	SHA256      string
	Content     string
	Author      string
	Version     string
	Metadata    map[string]string
	// Raw holds the file bytes; only the catalog persists them.
	Raw []byte
}

// SearchHit is one ranked match produced by a query.
type SearchHit struct {
	ID          FileIdentity      `json:"id"`
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	Extension   string            `json:"extension"`
	Size        int64             `json:"size"`
	CreatedUTC  time.Time         `json:"created_utc"`
	ModifiedUTC time.Time         `json:"modified_utc"`
	SHA256      string            `json:"sha256"`
	Author      string            `json:"author,omitempty"`
	Version     string            `json:"version,omitempty"`
	Score       float64           `json:"score"`
	Snippet     *string           `json:"snippet"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SearchResult is one page of hits plus facet counts for the whole match set.
type SearchResult struct {
	Total  uint64                    `json:"total"`
	Hits   []SearchHit               `json:"hits"`
	Facets map[string]map[string]int `json:"facets,omitempty"`
}
