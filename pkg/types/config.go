package types

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"
)

// Default lock-file parameters.
const (
	DefaultLockRetryInterval = 25 * time.Millisecond
	DefaultLockTimeout       = 10 * time.Second
	DefaultLockStaleAfter    = 30 * time.Second
	DefaultFileMode          = fs.FileMode(0o644)
)

// LockOptions configures the cross-process lock file that serializes writers
// sharing one collection file.
type LockOptions struct {
	// RetryInterval is the pause between attempts to create the lock file.
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval" mapstructure:"retry_interval"`

	// Timeout bounds the total wait for the lock file.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// StaleAfter is the age after which a lock file whose mtime has not been
	// refreshed is presumed abandoned and reclaimed.
	StaleAfter time.Duration `json:"stale_after" yaml:"stale_after" mapstructure:"stale_after"`
}

// Observer receives operation measurements. internal/metrics provides a
// Prometheus implementation; a nil Observer disables measurement.
type Observer interface {
	ObserveOperation(collection, op string, err error)
	ObserveLockWait(collection string, d time.Duration)
	ObserveDocuments(collection string, n int)
}

// Options configures a collection instance.
type Options struct {
	Lock LockOptions

	// FileMode is the permission used when the collection file is created.
	FileMode fs.FileMode

	// Logger receives structured logs. Defaults to slog.Default().
	Logger *slog.Logger

	Observer Observer

	// WatchChanges invalidates the cache when the file changes on disk so
	// reads observe writes made by other processes.
	WatchChanges bool

	// OnChange is called for every observed change to the collection file.
	// Only used when WatchChanges is set.
	OnChange func()
}

// Option validation errors.
var (
	ErrLockRetryInvalid   = errors.New("lock retry interval must be positive")
	ErrLockTimeoutInvalid = errors.New("lock timeout must not be negative")
	ErrLockStaleInvalid   = errors.New("lock stale threshold must be positive")
)

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	o.Lock = o.Lock.WithDefaults()
	if o.FileMode == 0 {
		o.FileMode = DefaultFileMode
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Validate checks that the options are well-formed after defaults apply.
func (o Options) Validate() error {
	return o.Lock.Validate()
}

// WithDefaults returns a copy of l with zero values replaced by defaults.
func (l LockOptions) WithDefaults() LockOptions {
	if l.RetryInterval == 0 {
		l.RetryInterval = DefaultLockRetryInterval
	}
	if l.Timeout == 0 {
		l.Timeout = DefaultLockTimeout
	}
	if l.StaleAfter == 0 {
		l.StaleAfter = DefaultLockStaleAfter
	}
	return l
}

// Validate checks the lock parameters. It returns a sentinel error from this
// package on failure.
func (l LockOptions) Validate() error {
	if l.RetryInterval <= 0 {
		return ErrLockRetryInvalid
	}
	if l.Timeout < 0 {
		return ErrLockTimeoutInvalid
	}
	if l.StaleAfter <= 0 {
		return ErrLockStaleInvalid
	}
	return nil
}
