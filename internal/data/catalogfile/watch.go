package catalogfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

const reloadDebounce = 300 * time.Millisecond

// Watcher reloads one catalog file when it changes.
type Watcher struct {
	path string
	w    *fsnotify.Watcher
	log  *logger.Logger
}

// NewWatcher starts watching path's directory. Call Run to receive catalogs and Close if Run
// is never called.
func NewWatcher(path string, log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("catalogfile: resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalogfile: create watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("catalogfile: watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, w: w, log: log.With("component", "CatalogWatcher", "path", abs)}, nil
}

// Run blocks until ctx is done, handing each valid reload to onLoad on the calling goroutine.
// A file that fails to parse is logged and skipped, so the last good catalog stays in place.
// No onLoad call starts after ctx is done, and none is running once Run returns.
func (cw *Watcher) Run(ctx context.Context, onLoad func(*File)) {
	defer cw.Close()

	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(reloadDebounce)
		case <-debounce.C:
			if ctx.Err() != nil {
				return
			}
			f, err := Load(cw.path)
			if err != nil {
				cw.log.Warn("catalog reload failed (keeping previous)", "error", err)
				continue
			}
			cw.log.Info("catalog reloaded", "courses", len(f.Courses), "users", len(f.Users))
			onLoad(f)
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.log.Warn("catalog watcher error", "error", err)
		}
	}
}

func (cw *Watcher) Close() error { return cw.w.Close() }
