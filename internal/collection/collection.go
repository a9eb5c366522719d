// Package collection implements a document collection stored as one JSON
// array file.
//
// Each Collection owns a private in-memory cache of the file. Reads are
// served from the cache under a shared in-process lock. Mutations take the
// in-process lock exclusively, then the cross-process lock file, re-read the
// file, apply the change, and persist it atomically before the cache is
// replaced. A mutation therefore either commits to both file and cache or
// leaves both as they were.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/larder/internal/atomicfile"
	"github.com/mesh-intelligence/larder/internal/lockfile"
	"github.com/mesh-intelligence/larder/internal/rwlock"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Collection is a file-backed document collection. It is safe for
// concurrent use. Several Collections, in one or many processes, may share a
// file; writes are serialized through the lock file.
type Collection struct {
	path   string
	name   string
	opts   types.Options
	logger *slog.Logger

	lock   rwlock.RWLock
	locker *lockfile.Locker

	// cache is guarded by lock: written only while it is held exclusively.
	cache cache

	loaded  atomic.Bool
	stale   atomic.Bool
	closed  atomic.Bool
	version atomic.Uint64

	closeOnce sync.Once
	closeErr  error
	watcher   *watcher
}

type cache struct {
	docs []types.Document
}

var _ types.Collection = (*Collection)(nil)

// Open returns a Collection backed by the JSON file at path. The file is not
// read until the first operation; a missing file is an empty collection and
// is created by the first mutation. The parent directory must exist.
func Open(path string, opts types.Options) (*Collection, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("collection path is empty")
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	c := &Collection{
		path:   abs,
		name:   Name(abs),
		opts:   opts,
		logger: opts.Logger.With("collection", abs),
	}
	c.locker = lockfile.New(lockfile.PathFor(abs), opts.Lock, c.logger)

	if opts.WatchChanges {
		w, err := startWatcher(c)
		if err != nil {
			return nil, err
		}
		c.watcher = w
	}
	return c, nil
}

// Name derives a short collection name from a file path: the base name
// without its extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Path returns the absolute path of the collection file.
func (c *Collection) Path() string { return c.path }

// Version returns the number of mutations this instance has committed.
func (c *Collection) Version() uint64 { return c.version.Load() }

// Close stops change watching. Operations after Close return
// types.ErrClosed. Close is idempotent.
func (c *Collection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.watcher != nil {
			c.closeErr = c.watcher.close()
		}
		c.logger.Debug("collection closed")
	})
	return c.closeErr
}

// Reload discards the cache and reads the file again.
func (c *Collection) Reload(ctx context.Context) (err error) {
	defer c.observe("reload", time.Now(), &err)
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.lock.WithWrite(ctx, func() error {
		return c.refresh()
	})
}

// refresh loads the file into the cache. The caller holds the write lock.
func (c *Collection) refresh() error {
	// Cleared first so that a change observed during the load marks the
	// cache stale again.
	wasStale := c.stale.Swap(false)
	docs, err := c.load()
	if err != nil {
		if wasStale {
			c.stale.Store(true)
		}
		return err
	}
	c.cache.docs = docs
	c.loaded.Store(true)
	return nil
}

// read runs fn over the cached documents while holding the shared lock.
// fn must not modify or retain the documents.
func (c *Collection) read(ctx context.Context, fn func(docs []types.Document) error) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	if !c.loaded.Load() || c.stale.Load() {
		err := c.lock.WithWrite(ctx, func() error {
			if c.loaded.Load() && !c.stale.Load() {
				return nil
			}
			return c.refresh()
		})
		if err != nil {
			return err
		}
	}
	return c.lock.WithRead(ctx, func() error {
		return fn(c.cache.docs)
	})
}

// mutation receives the documents freshly read from disk and may modify the
// slice and its elements in place. It returns the new document set and
// whether anything changed.
type mutation func(docs []types.Document) ([]types.Document, bool, error)

// mutate runs fn with both locks held. When fn reports a change the result
// is persisted and becomes the cache; otherwise nothing is written.
func (c *Collection) mutate(ctx context.Context, op string, fn mutation) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.lock.WithWrite(ctx, func() error {
		waitStart := time.Now()
		lock, err := c.locker.Acquire(ctx)
		if c.opts.Observer != nil {
			c.opts.Observer.ObserveLockWait(c.name, time.Since(waitStart))
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				c.logger.Warn("releasing lock file", "op", op, "error", err)
			}
		}()

		wasStale := c.stale.Swap(false)
		docs, err := c.load()
		if err != nil {
			if wasStale {
				c.stale.Store(true)
			}
			return err
		}

		next, changed, err := fn(docs)
		if err != nil {
			return err
		}
		if !changed {
			// Nothing to write, but the cache can still catch up with disk.
			c.cache.docs = docs
			c.loaded.Store(true)
			return nil
		}

		if next == nil {
			next = []types.Document{}
		}
		if err := atomicfile.WriteJSON(c.path, next, c.opts.FileMode); err != nil {
			return err
		}
		c.cache.docs = next
		c.loaded.Store(true)
		v := c.version.Add(1)
		c.logger.Debug("committed", "op", op, "documents", len(next), "version", v)
		if c.opts.Observer != nil {
			c.opts.Observer.ObserveDocuments(c.name, len(next))
		}
		return nil
	})
}

// load reads and decodes the collection file. A missing file in an existing
// directory is an empty collection.
func (c *Collection) load() ([]types.Document, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		if _, dirErr := os.Stat(filepath.Dir(c.path)); dirErr != nil {
			return nil, &types.IOError{Op: "read collection directory", Path: filepath.Dir(c.path), Err: dirErr}
		}
		return []types.Document{}, nil
	}
	if err != nil {
		return nil, &types.IOError{Op: "read collection file", Path: c.path, Err: err}
	}
	return Decode(c.path, data)
}

// Decode parses collection file content. path is used for error reporting
// only. Empty content, anything but a JSON array, and arrays holding
// non-objects are reported as *types.ParseError.
func Decode(path string, data []byte) ([]types.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &types.ParseError{Path: path, Err: errors.New("file is empty")}
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &types.ParseError{Path: path, Err: err}
	}
	if items == nil {
		return nil, &types.ParseError{Path: path, Err: errors.New("content is not an array")}
	}
	docs := make([]types.Document, len(items))
	for i, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			return nil, &types.ParseError{Path: path, Err: fmt.Errorf("element %d is not an object", i)}
		}
		docs[i] = doc
	}
	return docs, nil
}

func (c *Collection) observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("operation failed", "op", op, "elapsed", time.Since(start), "error", err)
	}
	if c.opts.Observer != nil {
		c.opts.Observer.ObserveOperation(c.name, op, err)
	}
}
