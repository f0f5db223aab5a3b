// Package watch re-triggers a callback when files under a project change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultIgnore lists directory names never watched. Build output is among
// them so a run does not trigger itself.
var DefaultIgnore = []string{"build", ".git", ".internal", "node_modules"}

// Watcher watches a directory tree.
type Watcher struct {
	logger   *zap.Logger
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	ignore   []string
}

// New starts watching root and every directory below it that is not ignored.
// Extra ignore entries are glob patterns matched against base names.
func New(logger *zap.Logger, root string, debounce time.Duration, ignore ...string) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", root)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}

	w := &Watcher{
		logger:   logger,
		fsw:      fsw,
		root:     abs,
		debounce: debounce,
		ignore:   append(append([]string{}, DefaultIgnore...), ignore...),
	}
	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.ignore {
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return errors.Wrapf(err, "walk %s", root)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Debug("cannot watch directory", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
}

// Run blocks until ctx is done, calling onChange with the sorted set of
// changed paths once no further change arrives within the debounce window.
// onChange runs on the calling goroutine, so runs never overlap; changes
// made during a run are reported after it returns.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addTree(ev.Name)
				}
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			w.logger.Debug("change detected", zap.Strings("paths", changed))
			onChange(ctx, changed)
		}
	}
}
