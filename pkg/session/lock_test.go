package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/missive/pkg/adapters/memory"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore(), nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, sid, domain.NewConversation(sid))
		_ = mgr.Delete(ctx, sid)
	}

	assert.Empty(t, mgr.locks, "lock entries must be released once unused")
}

type recordingLocker struct {
	locked   []string
	unlocked int
	ttl      time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(ctx context.Context) error {
		l.unlocked++
		return ctx.Err()
	}, nil
}

func TestManager_DistributedLockReleasedAfterCancel(t *testing.T) {
	locker := &recordingLocker{}
	mgr := NewManager(memory.NewStore(), nil, WithLocker(locker), WithLockTTL(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	err := mgr.WithLock(ctx, "s1", func(ctx context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
	assert.Equal(t, time.Minute, locker.ttl)
}
