package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akbaridria/obrix/internal/domain"
)

// MetricsCache implements domain.MetricsCache. The latest row of each pool is
// stored as JSON at "metrics:latest:{poolID}" and expires after ttl so stale
// pools fall back to Postgres.
type MetricsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMetricsCache creates a MetricsCache backed by the given Client. A zero
// ttl keeps entries until overwritten.
func NewMetricsCache(c *Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{rdb: c.Underlying(), ttl: ttl}
}

func latestKey(poolID string) string {
	return "metrics:latest:" + poolID
}

// SetLatest stores m as the most recent metrics of its pool.
func (mc *MetricsCache) SetLatest(ctx context.Context, m domain.PoolMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal metrics %s: %w", m.PoolID, err)
	}
	if err := mc.rdb.Set(ctx, latestKey(m.PoolID), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set latest metrics %s: %w", m.PoolID, err)
	}
	return nil
}

// GetLatest returns the cached metrics of a pool, or domain.ErrNotFound.
func (mc *MetricsCache) GetLatest(ctx context.Context, poolID string) (domain.PoolMetrics, error) {
	data, err := mc.rdb.Get(ctx, latestKey(poolID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PoolMetrics{}, domain.ErrNotFound
		}
		return domain.PoolMetrics{}, fmt.Errorf("redis: get latest metrics %s: %w", poolID, err)
	}
	var m domain.PoolMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("redis: decode latest metrics %s: %w", poolID, err)
	}
	return m, nil
}

// Compile-time interface check.
var _ domain.MetricsCache = (*MetricsCache)(nil)
