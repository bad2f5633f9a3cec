package lockers

import (
	"context"
	"sync"
	"time"

	"github.com/sbilibin2017/gw-banking/internal/logger"
	"golang.org/x/sync/semaphore"
)

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// LocalLocker serializes access to accounts within a single process.
// Entries are reference counted and dropped once no caller holds or waits on them.
type LocalLocker struct {
	mu      sync.Mutex
	locks   map[string]*keyLock
	timeout time.Duration
}

// NewLocalLocker creates a LocalLocker that gives up after timeout.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{
		locks:   make(map[string]*keyLock),
		timeout: timeout,
	}
}

// Acquire locks every key in canonical order. If the wait exceeds the timeout
// the keys locked so far are released and ErrLockTimeout is returned.
// Cancellation of ctx by the caller is returned as is.
func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (*Lease, error) {
	ordered := CanonicalOrder(keys)
	if len(ordered) == 0 {
		return nil, ErrNoKeys
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		lock := l.ref(key)
		if err := lock.sem.Acquire(waitCtx, 1); err != nil {
			l.unref(key)
			l.releaseAll(held)

			logger.Log.Warnw("account lock not acquired",
				"key", key,
				"keys", ordered,
				"error", err,
			)

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		}
		held = append(held, key)
	}

	return newLease(ordered, func(context.Context) error {
		l.releaseAll(held)
		return nil
	}), nil
}

func (l *LocalLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[key]
	if !ok {
		lock = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock := l.locks[key]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

// releaseAll frees keys in reverse acquisition order.
func (l *LocalLocker) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		lock := l.locks[keys[i]]
		l.mu.Unlock()

		lock.sem.Release(1)
		l.unref(keys[i])
	}
}
