package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies when config.toml changes on disk. The companion TUI
// edits the same file, so external writes must reach running terminals
// without a restart.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// WatchConfig watches the manager's config file and invokes onChange with
// the freshly loaded settings after every external write. The parent
// directory is watched rather than the file itself so atomic
// rename-replace writes are caught too.
func WatchConfig(m *Manager, onChange func(*DesktopConfig)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(m.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	target := filepath.Clean(m.Path())

	go func() {
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				cfg, err := m.Load()
				if err != nil {
					log.Printf("[config] reload after change failed: %v", err)
					continue
				}
				onChange(cfg)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Printf("[config] watch error: %v", err)
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
