package label

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vipertrack/vipertrack/internal/util"
)

// reloadDebounce absorbs the burst of filesystem events editors produce when
// saving (truncate + write, or write-to-temp + rename).
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the label registry whenever the labels file changes on
// disk. A failed reload is logged and the registry keeps serving the last
// good generation; the watcher keeps running.
type Watcher struct {
	registry *Registry
	path     string
	fsw      *fsnotify.Watcher
}

// NewWatcher watches the directory containing the labels file. Watching the
// directory instead of the file survives editors that replace the file.
func NewWatcher(registry *Registry, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create labels watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch labels directory: %w", err)
	}
	return &Watcher{registry: registry, path: path, fsw: fsw}, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(reloadDebounce)
				pendingC = pending.C
			} else {
				pending.Reset(reloadDebounce)
			}
		case <-pendingC:
			pending = nil
			pendingC = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			util.LogWarnf("labels watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	labels, err := LoadFile(w.path)
	if err != nil {
		util.LogErrorf("labels reload skipped: %v", err)
		return
	}

	generation, err := w.registry.Load(labels)
	if err != nil {
		if errors.Is(err, ErrRegistryLoad) {
			util.LogErrorf("labels reload rejected, keeping generation %d: %v",
				w.registry.Snapshot().Generation, err)
			return
		}
		util.LogErrorf("labels reload failed: %v", err)
		return
	}
	util.LogInfof("labels reloaded: %d labels, generation %d", len(labels), generation)
}
