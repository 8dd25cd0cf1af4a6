// Package watch reports header changes under a source tree, coalescing
// bursts of filesystem events.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phobologic/headerdoc/internal/discover"
	"github.com/phobologic/headerdoc/internal/lang"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Extensions defaults to the registered header extensions.
	Extensions []string
	Debounce   time.Duration
	Logger     *slog.Logger
}

// Watcher watches a directory tree for header changes.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	exts     map[string]bool
	debounce time.Duration
	log      *slog.Logger
}

// New starts watching root and every directory below it that discovery would
// search.
func New(root string, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = lang.HeaderExtensions
	}
	w := &Watcher{
		fs:       fw,
		root:     root,
		exts:     make(map[string]bool, len(exts)),
		debounce: opts.Debounce,
		log:      opts.Logger,
	}
	for _, e := range exts {
		w.exts[strings.ToLower(e)] = true
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.log == nil {
		w.log = slog.New(slog.DiscardHandler)
	}
	w.log = w.log.With("component", "watch")

	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run blocks until ctx is done, calling fn with the sorted root-relative
// paths of the headers that changed in each burst. An error from fn stops
// the loop and is returned.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string) error) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				continue
			}
			pending[rel] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			w.log.Debug("changes", "files", len(changed))
			if err := fn(ctx, changed); err != nil {
				return err
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

// addTree watches dir and its searchable subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.log.Warn("error accessing path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.log.Warn("failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
}
