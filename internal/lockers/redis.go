package lockers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-banking/internal/logger"
)

const keyPrefix = "lock:account:"

// RedisLocker serializes access to accounts across service instances using redsync mutexes.
type RedisLocker struct {
	rs         *redsync.Redsync
	timeout    time.Duration
	expiry     time.Duration
	retryDelay time.Duration
}

// NewRedisLocker creates a RedisLocker. timeout bounds the total wait for all keys,
// expiry is how long a key stays locked if the holder never releases it.
func NewRedisLocker(client redis.UniversalClient, timeout, expiry time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:         redsync.New(goredis.NewPool(client)),
		timeout:    timeout,
		expiry:     expiry,
		retryDelay: 50 * time.Millisecond,
	}
}

// Acquire locks every key in canonical order. Contention past the timeout
// releases whatever was taken and returns ErrLockTimeout.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (*Lease, error) {
	ordered := CanonicalOrder(keys)
	if len(ordered) == 0 {
		return nil, ErrNoKeys
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tries := int(l.timeout / l.retryDelay)
	if tries < 1 {
		tries = 1
	}

	held := make([]*redsync.Mutex, 0, len(ordered))
	for _, key := range ordered {
		mutex := l.rs.NewMutex(
			keyPrefix+key,
			redsync.WithExpiry(l.expiry),
			redsync.WithTries(tries),
			redsync.WithRetryDelay(l.retryDelay),
		)

		if err := mutex.LockContext(waitCtx); err != nil {
			unlockAll(context.WithoutCancel(ctx), held)

			logger.Log.Warnw("account lock not acquired",
				"key", key,
				"keys", ordered,
				"error", err,
			)

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isContention(err) || waitCtx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		held = append(held, mutex)
	}

	return newLease(ordered, func(ctx context.Context) error {
		return unlockAll(ctx, held)
	}), nil
}

func isContention(err error) bool {
	msg := err.Error()
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(msg, "lock already taken") ||
		strings.Contains(msg, "failed to acquire lock")
}

// unlockAll releases mutexes in reverse acquisition order.
func unlockAll(ctx context.Context, held []*redsync.Mutex) error {
	var errs []error
	for i := len(held) - 1; i >= 0; i-- {
		ok, err := held[i].UnlockContext(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("release lock %s: %w", held[i].Name(), err))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("release lock %s: already expired", held[i].Name()))
		}
	}
	return errors.Join(errs...)
}
