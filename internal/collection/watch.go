package collection

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// watcher marks a collection's cache stale when its file changes on disk.
// The directory is watched rather than the file so that atomic renames and
// re-creation are seen.
type watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

func startWatcher(c *Collection) (*watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &types.IOError{Op: "start watcher", Path: c.path, Err: err}
	}
	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, &types.IOError{Op: "watch directory", Path: dir, Err: err}
	}
	cw := &watcher{w: w, done: make(chan struct{})}
	go cw.run(c)
	return cw, nil
}

const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove

func (cw *watcher) run(c *Collection) {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != c.path || event.Op&relevant == 0 {
				continue
			}
			c.stale.Store(true)
			c.logger.Debug("collection file changed", "event", event.Op.String())
			if c.opts.OnChange != nil {
				c.opts.OnChange()
			}
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			// Events may have been dropped; force a reload.
			c.stale.Store(true)
			c.logger.Warn("watching collection file", "error", err)
		}
	}
}

func (cw *watcher) close() error {
	err := cw.w.Close()
	<-cw.done
	return err
}
