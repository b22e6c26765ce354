package styletakeout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
)

// DefaultCompletionPrefix starts the line the watcher prints after a rebuild
const DefaultCompletionPrefix = "Successfully compiled"

// skipDirs are never watched
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Watcher re-extracts changed sources against the builder's session, so
// short names stay stable and updated blocks replace their previous text.
// After each rebuild it prints a completion line through the session's
// completion port, which is what triggers the flush.
type Watcher struct {
	builder   *Builder
	out       io.Writer
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	onRebuild func(*BuildResult, error)

	accumulated   map[string]bool // Changed paths relative to Root
	accumulatedMu sync.Mutex
	debounceTimer *time.Timer
	timerMu       sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewWatcher watches the builder's Root recursively. Completion lines are
// written to out.
func NewWatcher(builder *Builder, out io.Writer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	debounce := builder.cfg.WatchDebounce
	if debounce <= 0 {
		debounce = DefaultConfig().WatchDebounce
	}

	w := &Watcher{
		builder:     builder,
		out:         builder.session.CompletionWriter(out),
		watcher:     fsw,
		debounce:    debounce,
		accumulated: make(map[string]bool),
		doneCh:      make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(builder.cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// OnRebuild registers a callback invoked after every rebuild. Must be called before Start.
func (w *Watcher) OnRebuild(fn func(*BuildResult, error)) {
	w.onRebuild = fn
}

// Start begins watching for file changes
func (w *Watcher) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.watch()
}

// Stop stops the watcher and waits for the event loop to exit. It is idempotent.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

// Done is closed when the event loop exits
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// watch is the main event loop
func (w *Watcher) watch() {
	defer close(w.doneCh)

	rebuildCh := make(chan struct{}, 1)

	for {
		select {
		case <-w.ctx.Done():
			w.stopDebounceTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New directories are watched as they appear
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						w.builder.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}

			rel, ok := w.shouldProcessEvent(event)
			if !ok {
				continue
			}

			w.accumulatedMu.Lock()
			w.accumulated[rel] = true
			w.accumulatedMu.Unlock()

			w.resetDebounceTimer(rebuildCh)

		case <-rebuildCh:
			w.handleDebounceExpired()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.builder.logger.Error("file watcher error", "error", err)
		}
	}
}

// handleDebounceExpired rebuilds the files changed during the quiet period
func (w *Watcher) handleDebounceExpired() {
	w.accumulatedMu.Lock()
	files := make([]string, 0, len(w.accumulated))
	for rel := range w.accumulated {
		// Removed files keep their blocks; there is nothing to re-extract
		if info, err := os.Stat(w.builder.cfg.resolve(rel)); err == nil && !info.IsDir() {
			files = append(files, rel)
		}
	}
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	result, err := w.Rebuild(w.ctx, files)
	if errors.Is(err, context.Canceled) {
		return
	}
	if w.onRebuild != nil {
		w.onRebuild(result, err)
	}
}

// Rebuild extracts files (relative to Root) and announces completion. The
// flush happens through the completion heuristic, or directly when the
// heuristic is disabled.
func (w *Watcher) Rebuild(ctx context.Context, files []string) (*BuildResult, error) {
	start := time.Now()
	result, runErr := w.builder.Run(ctx, files)
	if result == nil {
		return nil, runErr
	}

	signal := w.builder.cfg.Completion
	prefix := signal.MatchPrefix
	if prefix == "" {
		prefix = DefaultCompletionPrefix
	}
	line := fmt.Sprintf("%s %s in %s\n", prefix, pluralizeCount(len(files), "file", "files"), time.Since(start).Round(time.Millisecond))
	if _, err := io.WriteString(w.out, line); err != nil {
		return result, multierror.Append(runErr, fmt.Errorf("failed to write completion line: %w", err))
	}

	if !signal.Enabled || signal.MatchPrefix == "" {
		flush, err := w.builder.session.Flush()
		if err != nil {
			return result, multierror.Append(runErr, fmt.Errorf("flush failed: %w", err))
		}
		result.Flush = flush
	}

	result.Duration = time.Since(start)
	return result, runErr
}

// resetDebounceTimer restarts the quiet period
func (w *Watcher) resetDebounceTimer(rebuildCh chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		select {
		case rebuildCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists
func (w *Watcher) stopDebounceTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
}

// shouldProcessEvent filters events down to included, non-generated sources.
// It returns the path relative to Root.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return "", false
	}
	return w.included(event.Name)
}

// included reports whether path is a source the builder would discover
func (w *Watcher) included(path string) (string, bool) {
	cfg := w.builder.cfg
	rel, err := filepath.Rel(cfg.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if shouldSkipFile(cfg.Root, rel) || isUnder(path, w.builder.excludes()) {
		return "", false
	}

	slashed := filepath.ToSlash(rel)
	for _, pattern := range cfg.Includes {
		if ok, err := doublestar.Match(filepath.ToSlash(filepath.Clean(pattern)), slashed); err == nil && ok {
			return rel, true
		}
	}
	return "", false
}

// addDirectoriesRecursively adds all directories in the tree to the watcher
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	excluded := w.builder.excludes()
	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			w.builder.logger.Warn("error accessing path", "path", path, "error", err)
			return nil
		}

		if !d.IsDir() {
			return nil
		}
		if isUnder(path, excluded) || (path != rootPath && skipDirs[d.Name()]) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.builder.logger.Warn("failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
}
