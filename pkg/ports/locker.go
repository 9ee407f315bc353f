package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes turns of one conversation across replicas, so
// two `serve` processes never run a turn on the same session at once and a
// confirmation cannot be approved twice.
type DistributedLocker interface {
	// Lock blocks until the session's lock is held or ctx is done.
	// ttl bounds how long the lock survives a holder that crashed mid-turn.
	// The returned UnlockFunc must be called once the turn is persisted.
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error)
}
