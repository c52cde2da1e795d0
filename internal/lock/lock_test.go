package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerRejectsSecondHolder(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	held, err := locker.Obtain(ctx, "purchase:2025-03-01", time.Minute)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "purchase:2025-03-01", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := locker.Obtain(ctx, "purchase:2025-03-02", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))
	again, err := locker.Obtain(ctx, "purchase:2025-03-01", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockerExpiredHolderDoesNotReleaseNewHolder(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	locker := NewLocalLocker()
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := locker.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := locker.Obtain(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	_, err = locker.Obtain(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)
	require.NoError(t, fresh.Release(ctx))
}
