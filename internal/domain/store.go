package domain

import (
	"context"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit    int
	Offset   int
	Protocol string
	PoolID   string
}

// MetricsStore persists computed pool metrics.
type MetricsStore interface {
	Create(ctx context.Context, m PoolMetrics) (PoolMetrics, error)
	GetByID(ctx context.Context, id string) (PoolMetrics, error)
	List(ctx context.Context, opts ListOpts) ([]PoolMetrics, error)
	LatestByPool(ctx context.Context, poolID string) (PoolMetrics, error)
	CountUniquePools(ctx context.Context) (int64, error)
}

// AlertStore keeps a log of raised alerts.
type AlertStore interface {
	Log(ctx context.Context, a Alert) error
	List(ctx context.Context, opts ListOpts) ([]Alert, error)
}
