// Package watcher triggers re-aggregation when snapshot files change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"netcensus/internal/loader"
)

// Watcher watches snapshot directories and files for changes
type Watcher struct {
	paths    []string
	onChange func()
	debounce time.Duration
	logger   zerolog.Logger
}

// New creates a new snapshot watcher. onChange is called from the Watch
// goroutine, once per burst of changes.
func New(paths []string, onChange func()) *Watcher {
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		logger:   zerolog.Nop(),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithLogger sets the watcher logger
func (w *Watcher) WithLogger(l zerolog.Logger) *Watcher {
	w.logger = l
	return w
}

// Watch starts watching the configured paths for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// Explicit files are matched by name inside their parent directory so
	// editors that replace the file are still seen.
	files := make(map[string]bool)
	var roots []string
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.addTree(fsw, abs); err != nil {
				return err
			}
			roots = append(roots, abs)
			continue
		}
		files[abs] = true
		if err := fsw.Add(filepath.Dir(abs)); err != nil {
			return err
		}
	}

	w.logger.Info().Strs("paths", w.paths).Dur("debounce", w.debounce).Msg("watching snapshot sources")

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !hidden(event.Name) {
					if err := w.addTree(fsw, event.Name); err != nil {
						w.logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
					}
					continue
				}
			}

			if !relevant(event, files, roots) {
				continue
			}

			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("snapshot changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			w.logger.Info().Msg("snapshot sources changed")
			w.onChange()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relevant reports whether an event touches an explicit file or a snapshot
// file below one of the watched directory roots
func relevant(event fsnotify.Event, files map[string]bool, roots []string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if files[abs] {
		return true
	}
	for _, root := range roots {
		if strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return loader.IsSnapshotFile(abs)
		}
	}
	return false
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
