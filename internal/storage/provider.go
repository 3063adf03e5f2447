// Package storage defines the watched-root file-system abstraction.
package storage

import (
	"context"
	"io/fs"
)

// WalkFunc is called for every regular file found under a watched root.
// path is normalized (absolute, forward slashes).
type WalkFunc func(path string, info fs.FileInfo) error

// Provider is the view of the watched roots shared by the indexer and the watcher.
type Provider interface {
	// Roots returns the normalized root directories currently watched.
	Roots() []string
	// Contains reports whether path lies under one of the roots.
	Contains(path string) bool
	// Walk visits every regular file under every existing root. Missing roots are skipped.
	Walk(ctx context.Context, fn WalkFunc) error
}
