package lockfile

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func testOptions() types.LockOptions {
	return types.LockOptions{
		RetryInterval: 5 * time.Millisecond,
		Timeout:       2 * time.Second,
		StaleAfter:    30 * time.Second,
	}
}

func lockPath(t *testing.T) string {
	t.Helper()
	return PathFor(filepath.Join(t.TempDir(), "c.json"))
}

func writeHolder(t *testing.T, path string, h types.LockHolder) {
	t.Helper()
	data, err := json.Marshal(h)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestAcquireWritesHolderAndReleaseRemoves(t *testing.T) {
	path := lockPath(t)
	lock, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)

	holder, _, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), holder.PID)
	assert.Equal(t, lock.Holder().Token, holder.Token)
	assert.NotEmpty(t, holder.Token)

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.NoError(t, lock.Release(), "release is idempotent")
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "/data/c.json.lock", PathFor("/data/c.json"))
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	path := lockPath(t)
	held, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	_, err = New(path, opts, nil).Acquire(context.Background())

	require.ErrorIs(t, err, types.ErrLockTimeout)
	var timeoutErr *types.LockTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, path, timeoutErr.Path)
	assert.GreaterOrEqual(t, timeoutErr.Waited, opts.Timeout)
	require.NotNil(t, timeoutErr.Holder)
	assert.Equal(t, held.Holder().Token, timeoutErr.Holder.Token)
}

func TestAcquireHonoursContext(t *testing.T) {
	path := lockPath(t)
	held, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = New(path, testOptions(), nil).Acquire(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireMissingDirectoryFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "c.json.lock")

	start := time.Now()
	_, err := New(path, testOptions(), nil).Acquire(context.Background())

	assert.ErrorIs(t, err, types.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReclaimsLockWithExpiredHeartbeat(t *testing.T) {
	path := lockPath(t)
	writeHolder(t, path, types.LockHolder{PID: 1, Hostname: "elsewhere", Token: "old"})
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	lock, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)
	defer lock.Release()

	holder, _, err := Inspect(path)
	require.NoError(t, err)
	assert.NotEqual(t, "old", holder.Token)
}

func TestReclaimsLockOfDeadProcess(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	require.NoError(t, cmd.Run())
	deadPID := cmd.ProcessState.Pid()

	host, err := os.Hostname()
	require.NoError(t, err)
	path := lockPath(t)
	writeHolder(t, path, types.LockHolder{PID: deadPID, Hostname: host, Token: "dead"})

	lock, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)
	defer lock.Release()
	assert.NotEqual(t, "dead", lock.Holder().Token)
}

func TestDoesNotReclaimLiveForeignLock(t *testing.T) {
	path := lockPath(t)
	writeHolder(t, path, types.LockHolder{PID: os.Getpid(), Hostname: "elsewhere", Token: "live"})

	opts := testOptions()
	opts.Timeout = 30 * time.Millisecond
	_, err := New(path, opts, nil).Acquire(context.Background())

	assert.ErrorIs(t, err, types.ErrLockTimeout)
	holder, _, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "live", holder.Token)
}

func TestHeartbeatRefreshesMtime(t *testing.T) {
	path := lockPath(t)
	opts := testOptions()
	opts.StaleAfter = 60 * time.Millisecond
	lock, err := New(path, opts, nil).Acquire(context.Background())
	require.NoError(t, err)
	defer lock.Release()

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	require.Eventually(t, func() bool {
		_, mtime, err := Inspect(path)
		return err == nil && time.Since(mtime) < time.Minute
	}, time.Second, 5*time.Millisecond)
}

func TestReleaseLeavesForeignLockInPlace(t *testing.T) {
	path := lockPath(t)
	lock, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)

	writeHolder(t, path, types.LockHolder{PID: 1, Hostname: "elsewhere", Token: "other"})

	require.NoError(t, lock.Release())
	holder, _, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "other", holder.Token)
}

func TestReleaseAfterFileRemoved(t *testing.T) {
	path := lockPath(t)
	lock, err := New(path, testOptions(), nil).Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	assert.NoError(t, lock.Release())
}

func TestInspectFreeLock(t *testing.T) {
	_, _, err := Inspect(lockPath(t))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMutualExclusionAcrossLockers(t *testing.T) {
	path := lockPath(t)
	var holders, violations atomic.Int32

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 5 {
				lock, err := New(path, testOptions(), nil).Acquire(context.Background())
				if err != nil {
					return err
				}
				if holders.Add(1) != 1 {
					violations.Add(1)
				}
				time.Sleep(time.Millisecond)
				holders.Add(-1)
				if err := lock.Release(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, violations.Load())
}
