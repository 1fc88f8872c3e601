package domain

import (
	"context"
	"time"
)

// MetricsCache keeps the most recent metrics per pool for fast reads.
type MetricsCache interface {
	SetLatest(ctx context.Context, m PoolMetrics) error
	GetLatest(ctx context.Context, poolID string) (PoolMetrics, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of JSON events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// JobQueue is a durable work queue shared by schedulers and workers.
// Dequeue blocks for at most block and returns an empty slice when nothing
// arrived.
type JobQueue interface {
	Enqueue(ctx context.Context, job MetricsJob) (string, error)
	Dequeue(ctx context.Context, consumer string, count int, block time.Duration) ([]QueuedJob, error)
	Ack(ctx context.Context, receipt string) error
}
