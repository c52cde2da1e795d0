package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"settlehub/internal/domain"
)

type DashboardCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.DashboardResponse, ttl time.Duration) error
}

// DashboardKey scopes cached dashboards by period and partner filter.
func DashboardKey(start, end domain.Date, partnerID *int64) string {
	partner := "all"
	if partnerID != nil {
		partner = fmt.Sprintf("%d", *partnerID)
	}
	return fmt.Sprintf("settlehub:dashboard:%s:%s:%s", start, end, partner)
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*domain.DashboardResponse, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ *domain.DashboardResponse, _ time.Duration) error {
	return nil
}

type memoryEntry struct {
	value     domain.DashboardResponse
	expiresAt time.Time
}

// MemoryDashboardCache keeps dashboards in process for single-instance runs.
type MemoryDashboardCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryDashboardCache() *MemoryDashboardCache {
	return &MemoryDashboardCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryDashboardCache) Get(_ context.Context, key string) (*domain.DashboardResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

func (c *MemoryDashboardCache) Set(_ context.Context, key string, value *domain.DashboardResponse, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: *value, expiresAt: c.now().Add(ttl)}
	return nil
}
