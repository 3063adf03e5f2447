package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Roots implements Provider backed by the local file system.
type Roots struct {
	mu    sync.RWMutex
	roots []string // normalized, sorted, no root nested in another
}

// NewRoots creates a Roots set. Paths that cannot be resolved are dropped.
func NewRoots(paths []string) *Roots {
	r := &Roots{}
	r.Set(paths)
	return r
}

// Set atomically replaces the root set.
func (r *Roots) Set(paths []string) {
	norm := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		n, err := NormalizePath(p)
		if err != nil {
			continue
		}
		norm = append(norm, n)
	}
	slices.Sort(norm)
	norm = slices.Compact(norm)

	// Drop roots nested under another root so no file is walked twice.
	out := norm[:0]
	for _, p := range norm {
		if len(out) > 0 && isUnder(p, out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}

	r.mu.Lock()
	r.roots = out
	r.mu.Unlock()
}

// Roots returns a copy of the current root set.
func (r *Roots) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.roots)
}

// Contains reports whether path lies under one of the roots.
func (r *Roots) Contains(path string) bool {
	n, err := NormalizePath(path)
	if err != nil {
		return false
	}
	for _, root := range r.Roots() {
		if n == root || isUnder(n, root) {
			return true
		}
	}
	return false
}

// Walk visits every regular file under the roots. Unreadable directories are
// skipped; ctx is checked before every entry.
func (r *Roots) Walk(ctx context.Context, fn WalkFunc) error {
	for _, root := range r.Roots() {
		info, err := os.Stat(filepath.FromSlash(root))
		if err != nil || !info.IsDir() {
			continue
		}
		err = filepath.WalkDir(filepath.FromSlash(root), func(p string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() || IsTemporary(d.Name()) {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return nil
			}
			return fn(filepath.ToSlash(p), fi)
		})
		if err != nil {
			return fmt.Errorf("storage: walk %s: %w", root, err)
		}
	}
	return nil
}

// NormalizePath returns the absolute, cleaned, forward-slash form of p.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", errors.New("storage: empty path")
	}
	abs, err := filepath.Abs(filepath.FromSlash(p))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	return filepath.ToSlash(filepath.Clean(abs)), nil
}

// Extension returns the lowercased extension of path without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsTemporary reports whether name looks like an editor or office lock/temp file.
func IsTemporary(name string) bool {
	return strings.HasPrefix(name, "~$") ||
		strings.HasPrefix(name, ".~") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".swp")
}

func isUnder(p, root string) bool {
	if root == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}
