package lockers

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrLockTimeout is returned when the accounts could not be locked within the configured wait.
	ErrLockTimeout = errors.New("timed out waiting for account lock")
	// ErrNoKeys is returned when Acquire is called without any account.
	ErrNoKeys = errors.New("no accounts to lock")
)

// Lease is exclusive access to a set of accounts. It must be released on every exit path.
type Lease struct {
	keys    []string
	release func(ctx context.Context) error

	once sync.Once
	err  error
}

func newLease(keys []string, release func(ctx context.Context) error) *Lease {
	return &Lease{keys: keys, release: release}
}

// Keys returns the locked accounts in acquisition order.
func (l *Lease) Keys() []string {
	return slices.Clone(l.keys)
}

// Release frees every account held by the lease. Calls after the first are no-ops
// and return the first call's result.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.release(ctx)
	})
	return l.err
}

// CanonicalOrder returns the distinct keys sorted lexicographically.
// Every locker acquires in this order so two operations sharing accounts
// never wait on each other in a cycle.
func CanonicalOrder(keys []string) []string {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	return slices.Compact(ordered)
}
