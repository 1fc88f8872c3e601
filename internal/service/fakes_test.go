package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu      sync.Mutex
	rows    []domain.PoolMetrics
	err     error
	nextID  int
	created time.Time
}

func (f *fakeStore) Create(_ context.Context, m domain.PoolMetrics) (domain.PoolMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.PoolMetrics{}, f.err
	}
	f.nextID++
	m.ID = string(rune('a' + f.nextID - 1))
	m.CreatedAt = f.created
	f.rows = append(f.rows, m)
	return m, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (domain.PoolMetrics, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.PoolMetrics{}, domain.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, _ domain.ListOpts) ([]domain.PoolMetrics, error) {
	return f.rows, f.err
}

func (f *fakeStore) LatestByPool(_ context.Context, poolID string) (domain.PoolMetrics, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].PoolID == poolID {
			return f.rows[i], nil
		}
	}
	return domain.PoolMetrics{}, domain.ErrNotFound
}

func (f *fakeStore) CountUniquePools(_ context.Context) (int64, error) {
	seen := map[string]bool{}
	for _, r := range f.rows {
		seen[r.PoolID] = true
	}
	return int64(len(seen)), nil
}

type fakeCache struct {
	latest map[string]domain.PoolMetrics
	setErr error
	getErr error
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{latest: map[string]domain.PoolMetrics{}}
}

func (f *fakeCache) SetLatest(_ context.Context, m domain.PoolMetrics) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.latest[m.PoolID] = m
	return nil
}

func (f *fakeCache) GetLatest(_ context.Context, poolID string) (domain.PoolMetrics, error) {
	if f.getErr != nil {
		return domain.PoolMetrics{}, f.getErr
	}
	m, ok := f.latest[poolID]
	if !ok {
		return domain.PoolMetrics{}, domain.ErrNotFound
	}
	return m, nil
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	msgs []published
	err  error
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{channel, payload})
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

type fakeQueue struct {
	jobs []domain.MetricsJob
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job domain.MetricsJob) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return "1-" + string(rune('0'+len(f.jobs))), nil
}

func (f *fakeQueue) Dequeue(context.Context, string, int, time.Duration) ([]domain.QueuedJob, error) {
	return nil, nil
}

func (f *fakeQueue) Ack(context.Context, string) error { return nil }

type fakeAlertStore struct {
	logged []domain.Alert
	err    error
}

func (f *fakeAlertStore) Log(_ context.Context, a domain.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.logged = append(f.logged, a)
	return nil
}

func (f *fakeAlertStore) List(context.Context, domain.ListOpts) ([]domain.Alert, error) {
	return f.logged, nil
}

type fakeNotifier struct {
	sent []domain.Alert
	err  error
}

func (f *fakeNotifier) NotifyAlert(_ context.Context, a domain.Alert) error {
	f.sent = append(f.sent, a)
	return f.err
}
