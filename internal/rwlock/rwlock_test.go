package rwlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// waitQueued blocks until n waiters are queued.
func waitQueued(t *testing.T, l *RWLock, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, _, waiting := l.Stats()
		return waiting == n
	}, time.Second, time.Millisecond)
}

func TestReadersShareTheLock(t *testing.T) {
	var l RWLock
	ctx := context.Background()

	var inside atomic.Int32
	release := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	for range 3 {
		g.Go(func() error {
			return l.WithRead(ctx, func() error {
				inside.Add(1)
				<-release
				return nil
			})
		})
	}

	require.Eventually(t, func() bool { return inside.Load() == 3 }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())
}

func TestWriterExcludesEveryone(t *testing.T) {
	var l RWLock
	ctx := context.Background()

	var active, maxActive atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	for i := range 20 {
		write := i%3 == 0
		g.Go(func() error {
			body := func() error {
				n := active.Add(1)
				defer active.Add(-1)
				if write && n != 1 {
					return errors.New("writer ran alongside another holder")
				}
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return nil
			}
			if write {
				return l.WithWrite(ctx, body)
			}
			return l.WithRead(ctx, body)
		})
	}
	require.NoError(t, g.Wait())
}

func TestQueuedWriterBlocksLaterReaders(t *testing.T) {
	var l RWLock
	ctx := context.Background()

	require.NoError(t, l.RLock(ctx))

	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		_ = l.WithWrite(ctx, func() error { record("writer"); return nil })
	})
	waitQueued(t, &l, 1)

	wg.Go(func() {
		_ = l.WithRead(ctx, func() error { record("reader"); return nil })
	})
	waitQueued(t, &l, 2)

	l.RUnlock()
	wg.Wait()

	assert.Equal(t, []string{"writer", "reader"}, order)
}

func TestFIFOOrderOfWriters(t *testing.T) {
	var l RWLock
	ctx := context.Background()
	require.NoError(t, l.Lock(ctx))

	var order []int
	var wg sync.WaitGroup
	for i := range 5 {
		wg.Go(func() {
			_ = l.WithWrite(ctx, func() error {
				order = append(order, i)
				return nil
			})
		})
		waitQueued(t, &l, i+1)
	}

	l.Unlock()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestCancelWhileQueued(t *testing.T) {
	var l RWLock
	require.NoError(t, l.Lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- l.WithRead(ctx, func() error {
			t.Error("fn must not run after cancellation")
			return nil
		})
	}()
	waitQueued(t, &l, 1)
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	_, _, waiting := l.Stats()
	assert.Equal(t, 0, waiting)

	l.Unlock()
	readers, writer, _ := l.Stats()
	assert.Equal(t, 0, readers)
	assert.False(t, writer)
}

func TestCancelledWriterLetsReadersThrough(t *testing.T) {
	var l RWLock
	bg := context.Background()
	require.NoError(t, l.RLock(bg))

	ctx, cancel := context.WithCancel(bg)
	errc := make(chan error, 1)
	go func() { errc <- l.Lock(ctx) }()
	waitQueued(t, &l, 1)

	done := make(chan struct{})
	go func() {
		_ = l.WithRead(bg, func() error { return nil })
		close(done)
	}()
	waitQueued(t, &l, 2)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader stayed blocked behind a cancelled writer")
	}
	l.RUnlock()
}

func TestAlreadyCancelledContext(t *testing.T) {
	var l RWLock
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.WithWrite(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorPropagates(t *testing.T) {
	var l RWLock
	want := errors.New("boom")

	err := l.WithWrite(context.Background(), func() error { return want })

	assert.ErrorIs(t, err, want)
	_, writer, _ := l.Stats()
	assert.False(t, writer)
}

func TestPanicReleasesLock(t *testing.T) {
	var l RWLock

	assert.PanicsWithValue(t, "boom", func() {
		_ = l.WithWrite(context.Background(), func() error { panic("boom") })
	})

	require.NoError(t, l.WithWrite(context.Background(), func() error { return nil }))
}

func TestUnlockOfUnlockedPanics(t *testing.T) {
	var l RWLock
	assert.Panics(t, func() { l.Unlock() })
	assert.Panics(t, func() { l.RUnlock() })
}
