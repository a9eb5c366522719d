// Package lockfile implements an advisory lock shared between processes
// through a sentinel file created next to the collection file.
//
// The lock file is created with O_CREATE|O_EXCL and holds a JSON
// types.LockHolder. While held, its mtime is refreshed every StaleAfter/3.
// A lock file is stale when its mtime is older than StaleAfter, or when its
// owner runs on this host and the owning process is gone. Stale files are
// reclaimed by the next process that tries to acquire the lock.
package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Suffix is appended to a collection path to form its lock file path.
const Suffix = ".lock"

// PathFor returns the lock file path guarding collectionPath.
func PathFor(collectionPath string) string {
	return collectionPath + Suffix
}

// Locker acquires the lock file at one path.
type Locker struct {
	path     string
	opts     types.LockOptions
	logger   *slog.Logger
	hostname string
}

// New returns a Locker for the lock file at path. Zero options take their
// defaults; a nil logger uses slog.Default().
func New(path string, opts types.LockOptions, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	host, _ := os.Hostname()
	return &Locker{
		path:     path,
		opts:     opts.WithDefaults(),
		logger:   logger.With("lock", path),
		hostname: host,
	}
}

// Path returns the lock file path.
func (l *Locker) Path() string { return l.path }

// Acquire creates the lock file, waiting up to the configured timeout while
// another holder owns it. It returns *types.LockTimeoutError when the wait
// runs out, ctx.Err() when ctx ends first, and *types.IOError for any file
// system failure other than the lock already existing.
func (l *Locker) Acquire(ctx context.Context) (*Lock, error) {
	start := time.Now()
	var lastHolder *types.LockHolder
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lock, err := l.tryCreate()
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}

		reclaimed, holder, err := l.reclaimIfStale()
		if err != nil {
			return nil, err
		}
		if holder != nil {
			lastHolder = holder
		}
		if reclaimed {
			continue
		}

		waited := time.Since(start)
		if waited >= l.opts.Timeout {
			return nil, &types.LockTimeoutError{Path: l.path, Waited: waited, Holder: lastHolder}
		}
		pause := min(l.opts.RetryInterval, l.opts.Timeout-waited)
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) tryCreate() (*Lock, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		return nil, &types.IOError{Op: "create lock file", Path: l.path, Err: err}
	}

	holder := types.LockHolder{
		PID:       os.Getpid(),
		Hostname:  l.hostname,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	data, _ := json.Marshal(holder)
	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(l.path)
		return nil, &types.IOError{Op: "write lock file", Path: l.path, Err: werr}
	}

	lock := &Lock{
		path:   l.path,
		holder: holder,
		logger: l.logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go lock.heartbeat(l.opts.StaleAfter / 3)
	return lock, nil
}

// reclaimIfStale removes the lock file when it is stale. It reports whether
// the caller should retry immediately, along with the holder it observed.
func (l *Locker) reclaimIfStale() (bool, *types.LockHolder, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil, nil
	}
	if err != nil {
		return false, nil, &types.IOError{Op: "stat lock file", Path: l.path, Err: err}
	}
	// An unreadable or half-written holder falls back to the mtime check.
	holder, _ := readHolder(l.path)

	age := time.Since(info.ModTime())
	reason := ""
	switch {
	case age > l.opts.StaleAfter:
		reason = "heartbeat expired"
	case holder != nil && holder.Hostname == l.hostname && !processAlive(holder.PID):
		reason = "owner process exited"
	default:
		return false, holder, nil
	}

	// Re-read just before removing so a lock re-created since the check is
	// left alone.
	current, _ := readHolder(l.path)
	if !sameHolder(holder, current) {
		return true, current, nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, holder, &types.IOError{Op: "remove stale lock file", Path: l.path, Err: err}
	}
	attrs := []any{"reason", reason, "age", age.Round(time.Millisecond)}
	if holder != nil {
		attrs = append(attrs, "pid", holder.PID, "hostname", holder.Hostname)
	}
	l.logger.Warn("reclaimed stale lock", attrs...)
	return true, holder, nil
}

func sameHolder(a, b *types.LockHolder) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Token == b.Token
}

// Inspect reports the holder recorded in the lock file at path and the
// file's last heartbeat. It returns an error matching fs.ErrNotExist when the
// lock is free.
func Inspect(path string) (*types.LockHolder, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	holder, err := readHolder(path)
	if err != nil {
		return nil, info.ModTime(), err
	}
	return holder, info.ModTime(), nil
}

func readHolder(path string) (*types.LockHolder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var h types.LockHolder
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Lock is a held lock file. Release it exactly once when done; further calls
// are no-ops.
type Lock struct {
	path   string
	holder types.LockHolder
	logger *slog.Logger

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	release error
}

// Holder returns the owner record written to the lock file.
func (k *Lock) Holder() types.LockHolder { return k.holder }

// Release stops the heartbeat and removes the lock file if it still carries
// this holder's token. A lock file that is already gone is not an error.
func (k *Lock) Release() error {
	k.once.Do(func() {
		close(k.stop)
		<-k.done
		k.release = k.remove()
	})
	return k.release
}

func (k *Lock) remove() error {
	current, err := readHolder(k.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return &types.IOError{Op: "read lock file", Path: k.path, Err: err}
		}
		k.logger.Warn("lock file replaced by another holder; leaving it in place")
		return nil
	case current.Token != k.holder.Token:
		k.logger.Warn("lock file replaced by another holder; leaving it in place",
			"pid", current.PID, "hostname", current.Hostname)
		return nil
	}
	if err := os.Remove(k.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &types.IOError{Op: "remove lock file", Path: k.path, Err: err}
	}
	return nil
}

func (k *Lock) heartbeat(every time.Duration) {
	defer close(k.done)
	if every <= 0 {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			now := time.Now()
			if err := os.Chtimes(k.path, now, now); err != nil {
				k.logger.Warn("lock heartbeat failed", "error", err)
			}
		}
	}
}
