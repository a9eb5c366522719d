package types

import (
	"encoding/json"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIOErrorMatchesSentinelAndCause(t *testing.T) {
	err := error(&IOError{Op: "write", Path: "/data/c.json", Err: fs.ErrPermission})

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "/data/c.json")

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)
}

func TestParseErrorMatchesSentinel(t *testing.T) {
	cause := &json.SyntaxError{Offset: 3}
	err := error(&ParseError{Path: "c.json", Err: cause})

	assert.ErrorIs(t, err, ErrParse)
	var syn *json.SyntaxError
	assert.True(t, errors.As(err, &syn))
}

func TestLockTimeoutError(t *testing.T) {
	err := error(&LockTimeoutError{
		Path:   "c.json.lock",
		Waited: time.Second,
		Holder: &LockHolder{PID: 42, Hostname: "build-1", CreatedAt: time.Unix(0, 0).UTC()},
	})

	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Contains(t, err.Error(), "pid 42")

	bare := &LockTimeoutError{Path: "c.json.lock", Waited: time.Second}
	assert.Equal(t, "lock c.json.lock not acquired after 1s", bare.Error())
}
