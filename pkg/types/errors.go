package types

import (
	"errors"
	"fmt"
	"time"
)

// Input errors returned before any lock is taken.
var (
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidUpdate     = errors.New("invalid update")
	ErrInvalidProjection = errors.New("invalid projection")
	ErrInvalidSort       = errors.New("invalid sort")
	ErrInvalidID         = errors.New("invalid document ID")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrDuplicateID       = errors.New("duplicate document ID")
)

// Storage errors.
var (
	ErrLockTimeout = errors.New("lock timeout")
	ErrIO          = errors.New("collection I/O failure")
	ErrParse       = errors.New("collection file is not a valid JSON array")
	ErrClosed      = errors.New("collection is closed")
)

// LockHolder describes the owner recorded in a lock file.
type LockHolder struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// LockTimeoutError reports that the cross-process lock could not be obtained
// within the configured timeout. No mutation was performed.
type LockTimeoutError struct {
	Path   string
	Waited time.Duration

	// Holder is the last observed owner, nil if the lock file was unreadable.
	Holder *LockHolder
}

func (e *LockTimeoutError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("lock %s not acquired after %s: held by pid %d on %s since %s",
			e.Path, e.Waited, e.Holder.PID, e.Holder.Hostname, e.Holder.CreatedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("lock %s not acquired after %s", e.Path, e.Waited)
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// IOError wraps a read, write, rename or lock-file failure. errors.Is matches
// both ErrIO and the underlying error (e.g. fs.ErrPermission).
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// ParseError reports a collection file that exists but does not hold a JSON
// array of objects. It is never treated as an empty collection.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }
