package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akbaridria/obrix/internal/domain"
)

// MetricsChannel is the signal bus channel carrying fresh metrics rows.
const MetricsChannel = "ch:metrics"

// MetricsService records computed metrics and serves them back, coordinating
// the Postgres store, the latest-metrics cache and the signal bus.
type MetricsService struct {
	store  domain.MetricsStore
	cache  domain.MetricsCache
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewMetricsService creates a MetricsService with all required dependencies.
func NewMetricsService(
	store domain.MetricsStore,
	cache domain.MetricsCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MetricsService {
	return &MetricsService{
		store:  store,
		cache:  cache,
		bus:    bus,
		logger: logger,
	}
}

// Record persists one computation result. Cache and publish failures are
// logged and do not fail the call; the row is already durable.
func (s *MetricsService) Record(ctx context.Context, src domain.Source, res domain.MetricsResult) (domain.PoolMetrics, error) {
	row, err := s.store.Create(ctx, domain.NewPoolMetrics(src, res))
	if err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("metrics_service: record pool %s: %w", res.PoolID, err)
	}

	if err := s.cache.SetLatest(ctx, row); err != nil {
		s.logger.WarnContext(ctx, "metrics_service: cache latest failed",
			slog.String("pool_id", row.PoolID),
			slog.String("error", err.Error()),
		)
	}

	evt, err := json.Marshal(row)
	if err != nil {
		s.logger.WarnContext(ctx, "metrics_service: encode metrics event failed",
			slog.String("pool_id", row.PoolID),
			slog.String("error", err.Error()),
		)
		return row, nil
	}
	if err := s.bus.Publish(ctx, MetricsChannel, evt); err != nil {
		s.logger.WarnContext(ctx, "metrics_service: publish metrics failed",
			slog.String("pool_id", row.PoolID),
			slog.String("error", err.Error()),
		)
	}

	return row, nil
}

// Get returns one metrics row by id.
func (s *MetricsService) Get(ctx context.Context, id string) (domain.PoolMetrics, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("metrics_service: get %s: %w", id, err)
	}
	return m, nil
}

// List returns metrics rows newest first.
func (s *MetricsService) List(ctx context.Context, opts domain.ListOpts) ([]domain.PoolMetrics, error) {
	rows, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("metrics_service: list: %w", err)
	}
	return rows, nil
}

// Latest returns the newest metrics of a pool from the cache, falling back to
// Postgres and refilling the cache on a miss.
func (s *MetricsService) Latest(ctx context.Context, poolID string) (domain.PoolMetrics, error) {
	m, err := s.cache.GetLatest(ctx, poolID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "metrics_service: cache read failed, using store",
			slog.String("pool_id", poolID),
			slog.String("error", err.Error()),
		)
	}

	m, err = s.store.LatestByPool(ctx, poolID)
	if err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("metrics_service: latest for pool %s: %w", poolID, err)
	}
	if err := s.cache.SetLatest(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "metrics_service: cache refill failed",
			slog.String("pool_id", poolID),
			slog.String("error", err.Error()),
		)
	}
	return m, nil
}

// CountPools returns how many distinct pools have been measured.
func (s *MetricsService) CountPools(ctx context.Context) (int64, error) {
	n, err := s.store.CountUniquePools(ctx)
	if err != nil {
		return 0, fmt.Errorf("metrics_service: count pools: %w", err)
	}
	return n, nil
}
