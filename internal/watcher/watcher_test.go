package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/extract"
	"github.com/starford/sowilo/internal/indexer"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/testutil"
)

// fakeTarget records calls and optionally blocks IndexFile until released.
type fakeTarget struct {
	mu      sync.Mutex
	indexed []string
	removed []string
	gate    chan struct{}
	err     error
}

func (f *fakeTarget) IndexFile(ctx context.Context, path string) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, path)
	return f.err
}

func (f *fakeTarget) RemoveMissing(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, paths...)
	return nil
}

func (f *fakeTarget) Supports(path string) bool { return filepath.Ext(path) == ".txt" }

func (f *fakeTarget) indexedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.indexed)
}

func TestNotify_Coalesces(t *testing.T) {
	dir, roots := testutil.TestRoots(t)
	w := New(&fakeTarget{}, roots, testutil.Logger())
	p := filepath.Join(dir, "a.txt")

	if !w.Notify(p) {
		t.Fatal("first event should be queued")
	}
	if w.Notify(p) || w.Notify(p) {
		t.Error("duplicate events must be dropped while pending")
	}
	if n := w.QueueLen(); n != 1 {
		t.Errorf("queue length = %d, want 1", n)
	}
	w.Notify(filepath.Join(dir, "b.txt"))
	if n := w.QueueLen(); n != 2 {
		t.Errorf("queue length = %d, want 2", n)
	}
}

func TestNotify_QueueFull(t *testing.T) {
	dir, roots := testutil.TestRoots(t)
	w := New(&fakeTarget{}, roots, testutil.Logger(), WithQueueSize(1))
	w.Notify(filepath.Join(dir, "a.txt"))
	if w.Notify(filepath.Join(dir, "b.txt")) {
		t.Error("event accepted beyond queue capacity")
	}
	// A dropped event must not leave the path marked pending.
	<-w.queue
	w.release(mustNormalize(t, filepath.Join(dir, "a.txt")))
	if !w.Notify(filepath.Join(dir, "b.txt")) {
		t.Error("dropped path stayed pending")
	}
}

func TestWorker_ReleasesPendingAfterProcessing(t *testing.T) {
	dir, roots := testutil.TestRoots(t)
	p := filepath.Join(dir, "a.txt")
	testutil.WriteFile(t, p, "x")

	target := &fakeTarget{gate: make(chan struct{}), err: errors.New("boom")}
	w := New(target, roots, testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Shutdown(time.Second)

	w.Notify(p)
	// While the item is in flight the path stays pending.
	testutil.Eventually(t, time.Second, func() bool { return w.QueueLen() == 0 }, "item not dequeued")
	if w.Notify(p) {
		t.Error("in-flight path accepted a new event")
	}
	close(target.gate)

	testutil.Eventually(t, 2*time.Second, func() bool { return target.indexedCount() == 1 }, "item not processed")
	// A failing item is still released.
	testutil.Eventually(t, time.Second, func() bool { return w.Notify(p) }, "path still pending after processing")
	testutil.Eventually(t, 2*time.Second, func() bool { return target.indexedCount() == 2 }, "requeued item not processed")
}

func TestWorker_CollectsMissingPaths(t *testing.T) {
	dir, roots := testutil.TestRoots(t)
	target := &fakeTarget{}
	w := New(target, roots, testutil.Logger(), WithReconcileDelay(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = w.Start(ctx)
	defer w.Shutdown(time.Second)

	w.Notify(filepath.Join(dir, "gone1.txt"))
	w.Notify(filepath.Join(dir, "gone2.txt"))

	testutil.Eventually(t, 2*time.Second, func() bool {
		target.mu.Lock()
		defer target.mu.Unlock()
		return len(target.removed) == 2
	}, "missing paths not reconciled")
	if target.indexedCount() != 0 {
		t.Error("missing paths must not be indexed")
	}
}

func TestShutdown_WithoutStart(t *testing.T) {
	_, roots := testutil.TestRoots(t)
	w := New(&fakeTarget{}, roots, testutil.Logger())
	w.Shutdown(time.Second)
	if w.Notify("/tmp/x.txt") {
		t.Error("closed watcher accepted work")
	}
}

func TestWatcher_EndToEnd(t *testing.T) {
	dir, roots := testutil.TestRoots(t)
	cat := testutil.TestCatalog(t)
	engine := testutil.TestEngine(t)
	ix := indexer.New(cat, engine, extract.Default(), roots, testutil.Logger())

	w := New(ix, roots, testutil.Logger(), WithReconcileDelay(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Shutdown(2 * time.Second)
	time.Sleep(100 * time.Millisecond)

	// Write outside the root and move in so the file arrives complete.
	staging := filepath.Join(t.TempDir(), "report.md")
	testutil.WriteFile(t, staging, "watched content")
	target := filepath.Join(dir, "sub", "report.md")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.Rename(staging, target); err != nil {
		t.Fatal(err)
	}

	norm := mustNormalize(t, target)
	testutil.Eventually(t, 5*time.Second, func() bool {
		_, err := cat.Get(context.Background(), norm)
		return err == nil
	}, "new file not indexed by watcher")

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		_, err := cat.Get(context.Background(), norm)
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted file still cataloged")
	testutil.Eventually(t, 5*time.Second, func() bool {
		n, _ := engine.Count()
		return n == 0
	}, "deleted file still in the search index")
}

func TestUpdateRoots(t *testing.T) {
	dirA, roots := testutil.TestRoots(t)
	dirB := t.TempDir()
	target := &fakeTarget{}
	w := New(target, roots, testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = w.Start(ctx)
	defer w.Shutdown(time.Second)

	if err := w.UpdateRoots([]string{dirB}); err != nil {
		t.Fatal(err)
	}
	if roots.Contains(dirA) || !roots.Contains(dirB) {
		t.Fatalf("roots = %v", roots.Roots())
	}
	time.Sleep(100 * time.Millisecond)

	staging := filepath.Join(t.TempDir(), "in-b.txt")
	testutil.WriteFile(t, staging, "b")
	if err := os.Rename(staging, filepath.Join(dirB, "in-b.txt")); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool { return target.indexedCount() == 1 }, "new root not monitored")
	if target.indexedCount() != 1 {
		t.Errorf("indexed = %v", target.indexed)
	}
}

func mustNormalize(t *testing.T, p string) string {
	t.Helper()
	n, err := storage.NormalizePath(p)
	if err != nil {
		t.Fatal(err)
	}
	return n
}
