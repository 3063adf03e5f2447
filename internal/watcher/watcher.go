// Package watcher turns file-system notifications under the watched roots into
// a coalesced FIFO of paths drained by a single worker.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/storage"
)

// Defaults applied when the corresponding option is not set.
const (
	DefaultQueueSize      = 4096
	DefaultReconcileDelay = 200 * time.Millisecond
)

// Target receives the work produced by the watcher.
type Target interface {
	IndexFile(ctx context.Context, path string) error
	RemoveMissing(ctx context.Context, paths []string) error
	Supports(path string) bool
}

// RootSet is the mutable set of watched roots.
type RootSet interface {
	storage.Provider
	Set(paths []string)
}

// Watcher monitors the roots and feeds a single worker.
type Watcher struct {
	target         Target
	roots          RootSet
	logger         *slog.Logger
	reconcileDelay time.Duration

	pendingMu sync.Mutex
	pending   map[string]struct{}
	queue     chan string
	closed    bool

	startOnce  sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
	workerDone chan struct{}

	monMu   sync.Mutex
	fsw     *fsnotify.Watcher
	monDone chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQueueSize bounds the number of queued paths.
func WithQueueSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.queue = make(chan string, n)
		}
	}
}

// WithReconcileDelay sets how long missing paths are collected before removal.
func WithReconcileDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.reconcileDelay = d
		}
	}
}

// New creates a watcher. Nothing is monitored until Start.
func New(target Target, roots RootSet, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		target:         target,
		roots:          roots,
		logger:         logger,
		reconcileDelay: DefaultReconcileDelay,
		pending:        make(map[string]struct{}),
		queue:          make(chan string, DefaultQueueSize),
		workerDone:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start launches the worker and begins monitoring every existing root.
// Calling Start more than once has no further effect.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.startOnce.Do(func() {
		w.ctx, w.cancel = context.WithCancel(ctx)
		go w.work()
		err = w.startMonitors()
	})
	return err
}

// UpdateRoots replaces the root set: every monitor is stopped and monitoring
// restarts on the new set. Already indexed files are not re-indexed.
func (w *Watcher) UpdateRoots(paths []string) error {
	w.roots.Set(paths)
	if w.ctx == nil {
		return nil
	}
	w.Stop()
	return w.startMonitors()
}

// Stop disables all monitors. Queued work is still drained by the worker.
func (w *Watcher) Stop() {
	w.monMu.Lock()
	defer w.monMu.Unlock()
	if w.fsw == nil {
		return
	}
	_ = w.fsw.Close()
	<-w.monDone
	w.fsw = nil
	w.logger.Info("watcher: monitors stopped")
}

// Shutdown stops monitoring, cancels in-flight work, closes the queue and
// waits up to timeout for the worker to exit.
func (w *Watcher) Shutdown(timeout time.Duration) {
	w.Stop()
	if w.cancel != nil {
		w.cancel()
	}

	w.pendingMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.pendingMu.Unlock()

	if w.ctx == nil {
		return
	}
	select {
	case <-w.workerDone:
		w.logger.Info("watcher: stopped")
	case <-time.After(timeout):
		w.logger.Warn("watcher: worker did not finish in time", slog.Duration("timeout", timeout))
	}
}

// Notify enqueues path unless it is already pending. It reports whether a new
// work item was queued.
func (w *Watcher) Notify(path string) bool {
	p, err := storage.NormalizePath(path)
	if err != nil {
		return false
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return false
	}
	if _, ok := w.pending[p]; ok {
		return false
	}
	select {
	case w.queue <- p:
		w.pending[p] = struct{}{}
		return true
	default:
		w.logger.Warn("watcher: queue full, dropping event", slog.String("path", p))
		return false
	}
}

// QueueLen returns the number of queued, not yet started work items.
func (w *Watcher) QueueLen() int { return len(w.queue) }

func (w *Watcher) release(p string) {
	w.pendingMu.Lock()
	delete(w.pending, p)
	w.pendingMu.Unlock()
}

func (w *Watcher) work() {
	defer close(w.workerDone)

	missing := make(map[string]struct{})
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(w.reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(w.reconcileDelay)
		}
	}
	defer func() {
		if reconcileTimer != nil {
			reconcileTimer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-reconcileCh:
			paths := slices.Sorted(maps.Keys(missing))
			clear(missing)
			if err := w.target.RemoveMissing(w.ctx, paths); err != nil && !apperr.IsCanceled(err) {
				w.logger.Warn("watcher: remove failed", slog.String("error", err.Error()))
			}

		case p, ok := <-w.queue:
			if !ok {
				return
			}
			if w.process(p) {
				missing[p] = struct{}{}
				scheduleReconcile()
			}
			w.release(p)
		}
	}
}

// process handles one path and reports whether it is gone from disk.
func (w *Watcher) process(p string) (gone bool) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil {
		w.logger.Warn("watcher: stat failed", slog.String("path", p), slog.String("error", err.Error()))
		return false
	}
	if info.IsDir() {
		return false
	}
	if err := w.target.IndexFile(w.ctx, p); err != nil {
		if !apperr.IsCanceled(err) {
			w.logger.Warn("watcher: index failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return false
	}
	w.logger.Debug("watcher: indexed", slog.String("path", p))
	return false
}

func (w *Watcher) startMonitors() error {
	w.monMu.Lock()
	defer w.monMu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots.Roots() {
		dir := filepath.FromSlash(root)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Debug("watcher: root missing, skipped", slog.String("root", root))
			continue
		}
		if err := addDirsRecursive(fsw, dir); err != nil {
			w.logger.Warn("watcher: add root failed", slog.String("root", root), slog.String("error", err.Error()))
			continue
		}
		w.logger.Info("watcher: started", slog.String("root", root))
	}

	w.fsw = fsw
	w.monDone = make(chan struct{})
	go w.monitor(fsw, w.monDone)
	return nil
}

func (w *Watcher) monitor(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, ev)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if storage.IsTemporary(filepath.Base(ev.Name)) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(fsw, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
				return
			}
			w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
			w.enqueueDir(ev.Name)
			return
		}
		if w.target.Supports(ev.Name) {
			w.Notify(ev.Name)
		}

	case ev.Op&fsnotify.Write != 0:
		if w.target.Supports(ev.Name) {
			w.Notify(ev.Name)
		}

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The path may be a file or a whole directory; the worker decides.
		w.Notify(ev.Name)
	}
}

// enqueueDir queues the files already present in a directory that appeared
// after monitoring started (e.g. moved in as a whole).
func (w *Watcher) enqueueDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.target.Supports(p) || storage.IsTemporary(d.Name()) {
			return nil
		}
		w.Notify(p)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
