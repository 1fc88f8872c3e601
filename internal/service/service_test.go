package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akbaridria/obrix/internal/domain"
)

var src = domain.Source{Protocol: "uniswap", Chain: "ethereum", Version: "v4"}

func result(pool string) domain.MetricsResult {
	return domain.MetricsResult{
		PoolID: pool, Token0Symbol: "WETH", Token1Symbol: "USDC",
		TWAP: 3000, Volatility: 0.8, MeanReversion: 0.4,
		Success: domain.SuccessFlags{TWAP: true, Volatility: true, MeanReversion: true},
		Swaps:   make([]domain.SwapRecord, 12),
	}
}

func TestMetricsService_Record(t *testing.T) {
	store, cache, bus := &fakeStore{}, newFakeCache(), &fakeBus{}
	svc := NewMetricsService(store, cache, bus, discardLogger())

	row, err := svc.Record(context.Background(), src, result("0xp"))
	require.NoError(t, err)

	assert.Equal(t, "a", row.ID)
	assert.Equal(t, "uniswap", row.Protocol)
	assert.Equal(t, 12, row.SwapCount)
	assert.Equal(t, row, cache.latest["0xp"])

	require.Len(t, bus.msgs, 1)
	assert.Equal(t, MetricsChannel, bus.msgs[0].channel)
	var evt domain.PoolMetrics
	require.NoError(t, json.Unmarshal(bus.msgs[0].payload, &evt))
	assert.Equal(t, "0xp", evt.PoolID)
	assert.Equal(t, 3000.0, evt.TWAP)
}

func TestMetricsService_RecordSurvivesCacheAndBusFailures(t *testing.T) {
	cache := newFakeCache()
	cache.setErr = errors.New("redis down")
	svc := NewMetricsService(&fakeStore{}, cache, &fakeBus{err: errors.New("redis down")}, discardLogger())

	_, err := svc.Record(context.Background(), src, result("0xp"))
	assert.NoError(t, err)
}

func TestMetricsService_RecordSkipsUnencodableEvent(t *testing.T) {
	bus := &fakeBus{}
	svc := NewMetricsService(&fakeStore{}, newFakeCache(), bus, discardLogger())

	res := result("0xp")
	res.Volatility = math.Inf(1)
	row, err := svc.Record(context.Background(), src, res)
	require.NoError(t, err)
	assert.Equal(t, "0xp", row.PoolID)
	assert.Empty(t, bus.msgs)
}

func TestMetricsService_RecordStoreFailure(t *testing.T) {
	bus := &fakeBus{}
	svc := NewMetricsService(&fakeStore{err: errors.New("pg down")}, newFakeCache(), bus, discardLogger())

	_, err := svc.Record(context.Background(), src, result("0xp"))
	require.Error(t, err)
	assert.Empty(t, bus.msgs)
}

func TestMetricsService_LatestPrefersCache(t *testing.T) {
	cache := newFakeCache()
	cache.latest["0xp"] = domain.PoolMetrics{ID: "cached", PoolID: "0xp"}
	svc := NewMetricsService(&fakeStore{}, cache, &fakeBus{}, discardLogger())

	m, err := svc.Latest(context.Background(), "0xp")
	require.NoError(t, err)
	assert.Equal(t, "cached", m.ID)
}

func TestMetricsService_LatestFallsBackAndRefills(t *testing.T) {
	store := &fakeStore{rows: []domain.PoolMetrics{{ID: "old", PoolID: "0xp"}, {ID: "new", PoolID: "0xp"}}}
	cache := newFakeCache()
	cache.getErr = errors.New("timeout")
	svc := NewMetricsService(store, cache, &fakeBus{}, discardLogger())

	m, err := svc.Latest(context.Background(), "0xp")
	require.NoError(t, err)
	assert.Equal(t, "new", m.ID)
	assert.Equal(t, 1, cache.sets)
}

func TestMetricsService_LatestNotFound(t *testing.T) {
	svc := NewMetricsService(&fakeStore{}, newFakeCache(), &fakeBus{}, discardLogger())

	_, err := svc.Latest(context.Background(), "0xp")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMetricsService_CountPools(t *testing.T) {
	store := &fakeStore{rows: []domain.PoolMetrics{{PoolID: "a"}, {PoolID: "b"}, {PoolID: "a"}}}
	svc := NewMetricsService(store, newFakeCache(), &fakeBus{}, discardLogger())

	n, err := svc.CountPools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestJobService_Enqueue(t *testing.T) {
	q := &fakeQueue{}
	svc := NewJobService(q)
	svc.now = func() time.Time { return time.Unix(100, 0) }

	mixed := "0x21C67E77068DE97969BA93D4AAB21826D33CA12BB9F565D8496E8FDA8A82CA27"
	job, err := svc.Enqueue(context.Background(), mixed)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(mixed), job.PoolID)
	assert.Equal(t, "1-1", job.ID)
	assert.True(t, job.EnqueuedAt.Equal(time.Unix(100, 0)))
	require.Len(t, q.jobs, 1)
}

func TestJobService_RejectsBadPool(t *testing.T) {
	q := &fakeQueue{}
	_, err := NewJobService(q).Enqueue(context.Background(), "pool-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPoolID))
	assert.Empty(t, q.jobs)
}

func TestJobService_EnqueueAll(t *testing.T) {
	q := &fakeQueue{}
	n, err := NewJobService(q).EnqueueAll(context.Background(), []string{
		"0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640",
		"0x21c67e77068de97969ba93d4aab21826d33ca12bb9f565d8496e8fda8a82ca27",
		"bad",
	})
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestAlertService_Raise(t *testing.T) {
	store, notifier, bus := &fakeAlertStore{}, &fakeNotifier{err: errors.New("discord down")}, &fakeBus{}
	svc := NewAlertService(store, notifier, bus, discardLogger())

	alerts := []domain.Alert{
		{Event: domain.EventVolatilitySpike, PoolID: "0xp", Value: 3, Threshold: 2},
		{Event: domain.EventTWAPDeviation, PoolID: "0xp", Value: 9, Threshold: 5},
	}
	require.NoError(t, svc.Raise(context.Background(), alerts))
	assert.Equal(t, alerts, store.logged)
	assert.Len(t, notifier.sent, 2)
	require.Len(t, bus.msgs, 2)
	assert.Equal(t, AlertsChannel, bus.msgs[0].channel)
}

func TestAlertService_NilNotifier(t *testing.T) {
	svc := NewAlertService(&fakeAlertStore{}, nil, &fakeBus{}, discardLogger())
	assert.NoError(t, svc.Raise(context.Background(), []domain.Alert{{Event: "x"}}))
}

func TestAlertService_StoreFailure(t *testing.T) {
	svc := NewAlertService(&fakeAlertStore{err: errors.New("pg")}, nil, &fakeBus{}, discardLogger())
	assert.Error(t, svc.Raise(context.Background(), []domain.Alert{{Event: "x"}}))
}
