// Package rwlock provides a readers-writer lock with first-in first-out
// fairness.
//
// Waiters queue in arrival order. Readers at the head of the queue are
// admitted together; a writer waits for the lock to drain and then runs
// alone. Because a queued writer blocks every reader behind it, writers are
// never starved by a steady stream of readers. Unlike sync.RWMutex, waits can
// be abandoned through a context.
package rwlock

import (
	"context"
	"sync"
)

type waiter struct {
	write bool
	ready chan struct{}
}

// RWLock is a FIFO readers-writer lock. The zero value is unlocked and ready
// to use. An RWLock must not be copied after first use.
type RWLock struct {
	mu      sync.Mutex
	readers int  // active readers
	writer  bool // a writer holds the lock
	queue   []*waiter
}

// WithRead runs fn while holding a shared lock. It blocks until the lock is
// granted or ctx is done; in the latter case fn is not run and ctx.Err() is
// returned. fn's error is returned unchanged. A panic in fn releases the lock
// and is re-raised.
func (l *RWLock) WithRead(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx, false); err != nil {
		return err
	}
	defer l.release(false)
	return fn()
}

// WithWrite runs fn while holding the lock exclusively. It follows the same
// rules as WithRead.
func (l *RWLock) WithWrite(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx, true); err != nil {
		return err
	}
	defer l.release(true)
	return fn()
}

// Lock acquires the lock exclusively.
func (l *RWLock) Lock(ctx context.Context) error { return l.acquire(ctx, true) }

// Unlock releases a lock taken by Lock.
func (l *RWLock) Unlock() { l.release(true) }

// RLock acquires a shared lock.
func (l *RWLock) RLock(ctx context.Context) error { return l.acquire(ctx, false) }

// RUnlock releases a lock taken by RLock.
func (l *RWLock) RUnlock() { l.release(false) }

// Stats reports the active readers, whether a writer holds the lock, and the
// number of queued waiters.
func (l *RWLock) Stats() (readers int, writer bool, waiting int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readers, l.writer, len(l.queue)
}

func (l *RWLock) acquire(ctx context.Context, write bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if len(l.queue) == 0 && l.admissible(write) {
		l.grant(write)
		l.mu.Unlock()
		return nil
	}
	w := &waiter{write: write, ready: make(chan struct{})}
	l.queue = append(l.queue, w)
	l.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-w.ready:
		// Granted while we were cancelling; hand it back.
		l.releaseLocked(write)
	default:
		l.remove(w)
		// Removing a queued writer may let readers behind it through.
		l.dispatch()
	}
	return ctx.Err()
}

func (l *RWLock) release(write bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked(write)
}

func (l *RWLock) releaseLocked(write bool) {
	if write {
		if !l.writer {
			panic("rwlock: unlock of unlocked write lock")
		}
		l.writer = false
	} else {
		if l.readers == 0 {
			panic("rwlock: unlock of unlocked read lock")
		}
		l.readers--
	}
	l.dispatch()
}

func (l *RWLock) admissible(write bool) bool {
	if write {
		return !l.writer && l.readers == 0
	}
	return !l.writer
}

func (l *RWLock) grant(write bool) {
	if write {
		l.writer = true
	} else {
		l.readers++
	}
}

// dispatch admits waiters from the head of the queue for as long as they fit.
func (l *RWLock) dispatch() {
	for len(l.queue) > 0 {
		w := l.queue[0]
		if !l.admissible(w.write) {
			return
		}
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.grant(w.write)
		close(w.ready)
		if w.write {
			return
		}
	}
}

func (l *RWLock) remove(w *waiter) {
	for i, q := range l.queue {
		if q == w {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}
