package auditlog

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher records workspace mutations that bypass the tool surface into the
// edit log, so out-of-band writes still reopen the audit requirement.
type Watcher struct {
	manager *Manager
	root    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching the workspace root and its subdirectories.
// Paths under the data directory (dot-prefixed) are ignored.
func NewWatcher(manager *Manager, root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		manager: manager,
		root:    root,
		watcher: fw,
		done:    make(chan struct{}),
	}

	// Watch the root and every existing subdirectory.
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := fw.Add(path); err != nil {
				log.Printf("[auditlog] cannot watch %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// run consumes filesystem events until the watcher is closed.
func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[auditlog] watcher error: %v", err)
		}
	}
}

// handle records mutating events and extends the watch to new directories.
func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, ".") {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				log.Printf("[auditlog] cannot watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.manager.RecordEdit(rel)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
