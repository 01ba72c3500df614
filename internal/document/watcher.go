package document

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// SnapshotWatcher reloads a host from its snapshot file whenever the
// file changes on disk. Editors usually replace files with a rename, so
// the watch covers the containing directory and filters by name.
type SnapshotWatcher struct {
	host   *Memory
	path   string
	name   string
	fw     *fsnotify.Watcher
	settle time.Duration
	log    hclog.Logger
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// WatchSnapshot starts watching path and reloading host from it. The
// caller owns the returned watcher and must Stop it.
func WatchSnapshot(host *Memory, path string, log hclog.Logger) (*SnapshotWatcher, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create snapshot watcher: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &SnapshotWatcher{
		host:   host,
		path:   abs,
		name:   filepath.Base(abs),
		fw:     fw,
		settle: 75 * time.Millisecond,
		log:    log,
		stop:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	log.Debug("watching snapshot", "path", abs)
	return w, nil
}

func (w *SnapshotWatcher) run() {
	defer w.wg.Done()
	// The settle delay lets the writer finish before we reload, since
	// saves arrive as several write events in quick succession.
	var settle *time.Timer
	var settleC <-chan time.Time
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != w.name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(w.settle)
				settleC = settle.C
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(w.settle)
			}
		case <-settleC:
			settle = nil
			settleC = nil
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Error("snapshot watch error", "error", err)
		}
	}
}

func (w *SnapshotWatcher) reload() {
	if err := w.host.LoadSnapshotFile(w.path); err != nil {
		w.log.Warn("snapshot reload failed, keeping previous document", "path", w.path, "error", err)
		return
	}
	w.log.Info("document reloaded from snapshot", "path", w.path)
	w.host.NotifyChange("reload")
}

// Stop halts the watch loop and releases the file watcher.
func (w *SnapshotWatcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.fw.Close()
		w.wg.Wait()
	})
}
