package triage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of writes Playwright makes per failure.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports error files created or rewritten under a results tree.
// fsnotify is not recursive, so new directories are added as they appear.
type Watcher struct {
	root       string
	errorFiles []string
	debounce   time.Duration
	log        *slog.Logger
	watcher    *fsnotify.Watcher
}

// NewWatcher starts watching root and every directory below it.
func NewWatcher(root string, errorFiles []string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := &Watcher{root: root, errorFiles: errorFiles, debounce: debounce, log: log, watcher: fw}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run calls onBatch with the error files changed in each quiet period until
// ctx is cancelled. Files already present in a new directory are included.
func (w *Watcher) Run(ctx context.Context, onBatch func(paths []string)) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := w.addTree(event.Name); err != nil {
					w.log.Warn("failed to watch new directory", "dir", event.Name, "err", err)
				}
				w.collectExisting(event.Name, pending)
			} else if slices.Contains(w.errorFiles, filepath.Base(event.Name)) {
				pending[event.Name] = true
			}
			if len(pending) > 0 {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "err", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			onBatch(paths)
		}
	}
}

func (w *Watcher) collectExisting(dir string, pending map[string]bool) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && slices.Contains(w.errorFiles, d.Name()) {
			pending[path] = true
		}
		return nil
	})
}
