package models

import "time"

// Change event kinds.
const (
	EventIndexed = "indexed"
	EventDeleted = "deleted"
	EventFailed  = "failed"
)

// ChangeEvent reports the outcome of one indexing operation.
type ChangeEvent struct {
	Kind  string       `json:"kind"`
	Path  string       `json:"path"`
	ID    FileIdentity `json:"id,omitempty"`
	Error string       `json:"error,omitempty"`
	At    time.Time    `json:"at"`
}
