// Package watcher keeps the resume store in step with inbox directories: files dropped
// in are uploaded, changed files are re-uploaded and removed files are deleted.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Handler receives file changes. matcher.Service implements it.
type Handler interface {
	Sync(ctx context.Context, path string) error
	Forget(ctx context.Context, path string) error
}

// Watcher watches inbox directories and forwards resume file changes to a Handler.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	handler    Handler
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watch events and handler failures.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is synced.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher over roots. extensions filters files (empty = all); recursive
// also watches subdirectories, including ones created later.
func New(roots, extensions []string, recursive bool, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		roots:      cleanRoots(roots),
		extensions: extensions,
		recursive:  recursive,
		handler:    handler,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func cleanRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			out = append(out, filepath.Clean(abs))
		}
	}
	return out
}

// Roots returns the watched directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Start creates missing roots, registers them and processes events until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := w.addTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx = ctx
	w.logger.Info("watching resume inbox", zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw)
	return nil
}

// addTree registers dir, and its subdirectories when recursive.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	if !w.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.matchExtension(path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if w.matchExtension(path) {
			w.forget(path)
		}
	}
}

// handleNewDirectory watches a directory created under a recursive root and syncs the
// files already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	if !w.recursive {
		return
	}
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := w.addTree(fsw, dir); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		if root == path || inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule syncs path once no further events arrive for the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.sync(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) runContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) sync(path string) {
	if err := w.handler.Sync(w.runContext(), path); err != nil {
		w.logger.Warn("failed to sync resume", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) forget(path string) {
	if err := w.handler.Forget(w.runContext(), path); err != nil {
		w.logger.Warn("failed to remove resume", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) syncDirectory(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.matchExtension(path) {
			w.sync(path)
		}
		return nil
	})
}

// SyncExisting syncs every matching file already present in the roots. Unchanged
// files are skipped by the handler.
func (w *Watcher) SyncExisting() {
	for _, root := range w.roots {
		w.syncDirectory(root)
	}
}

// Stop stops watching and cancels pending syncs.
func (w *Watcher) Stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	if fsw != nil {
		_ = fsw.Close()
	}
	w.stopOnce.Do(func() { close(w.done) })
}
