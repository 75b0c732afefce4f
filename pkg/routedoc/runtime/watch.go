package runtime

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/theroutercompany/routedoc/internal/scan"
	pkglog "github.com/theroutercompany/routedoc/pkg/log"
)

// watcher observes the source tree and triggers regeneration. Bursts of
// events are coalesced by the debounce timer and regeneration is capped at
// one run per debounce interval by the limiter.
type watcher struct {
	fs       *fsnotify.Watcher
	scanner  *scan.Scanner
	debounce time.Duration
	limiter  *rate.Limiter
	logger   pkglog.Logger
}

func newWatcher(scanner *scan.Scanner, debounce time.Duration, logger pkglog.Logger) (*watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		fs:       fsw,
		scanner:  scanner,
		debounce: debounce,
		limiter:  rate.NewLimiter(rate.Every(debounce), 1),
		logger:   logger,
	}
	if err := w.addTree(scanner.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it that the scanner would
// enter.
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.scanner.SkipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return err
		}
		return nil
	})
}

// relevant reports whether evt should trigger regeneration and starts
// watching newly created directories.
func (w *watcher) relevant(evt fsnotify.Event) bool {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if evt.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if w.scanner.SkipDir(evt.Name) {
				return false
			}
			if err := w.addTree(evt.Name); err != nil {
				w.logger.Warnw("failed to watch new directory", "dir", evt.Name, "error", err)
			}
			return true
		}
	}
	return w.scanner.Match(evt.Name)
}

func (w *watcher) run(ctx context.Context, regenerate func(context.Context)) {
	defer w.fs.Close()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(evt) {
				continue
			}
			w.logger.Debugw("source change detected", "path", evt.Name, "op", evt.Op.String())
			debounce = time.After(w.debounce)
		case <-debounce:
			debounce = nil
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			w.logger.Infow("regenerating documentation")
			regenerate(ctx)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("watcher error", "error", err)
		}
	}
}
