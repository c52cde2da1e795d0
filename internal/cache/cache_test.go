package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlehub/internal/domain"
)

func TestMemoryDashboardCacheExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryDashboardCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", &domain.DashboardResponse{TotalRevenue: decimal.NewFromInt(10)}, 10*time.Second))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(10)))

	now = now.Add(10 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDashboardKey(t *testing.T) {
	start := domain.NewDate(2025, time.March, 1)
	end := domain.NewDate(2025, time.March, 31)
	partner := int64(7)

	assert.Equal(t, "settlehub:dashboard:2025-03-01:2025-03-31:all", DashboardKey(start, end, nil))
	assert.Equal(t, "settlehub:dashboard:2025-03-01:2025-03-31:7", DashboardKey(start, end, &partner))
}

func TestNoopDashboardCacheMisses(t *testing.T) {
	var c DashboardCache = NoopDashboardCache{}
	require.NoError(t, c.Set(context.Background(), "k", &domain.DashboardResponse{}, time.Minute))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
