package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sqrtX96(k int64) *big.Int {
	return new(big.Int).Lsh(big.NewInt(k), 96)
}

// windowOf builds a window priced 1:1 so that multiplier k means price k^2,
// one swap per minute.
func windowOf(poolID string, ks ...int64) domain.SwapWindow {
	zero := 0
	swaps := make([]domain.SwapRecord, len(ks))
	for i, k := range ks {
		swaps[i] = domain.SwapRecord{
			ID:           big.NewInt(int64(i)).String(),
			Timestamp:    1_700_000_000 + int64(i)*60,
			SqrtPriceX96: sqrtX96(k),
		}
	}
	return domain.SwapWindow{
		PoolID: poolID,
		Pool: domain.PoolInfo{
			ID:     poolID,
			Token0: domain.Token{Symbol: "WETH", Decimals: &zero},
			Token1: domain.Token{Symbol: "USDC", Decimals: &zero},
		},
		Swaps: swaps,
	}
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	acquired []string
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: map[string]bool{}} }

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	f.acquired = append(f.acquired, key)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	window domain.SwapWindow
	err    error
	calls  int
	since  time.Time
	first  int
}

func (f *fakeFetcher) FetchPoolSwaps(_ context.Context, poolID string, since time.Time, first int) (domain.SwapWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.since = since
	f.first = first
	if f.err != nil {
		return domain.SwapWindow{}, f.err
	}
	w := f.window
	w.PoolID = poolID
	return w, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []domain.MetricsResult
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, src domain.Source, res domain.MetricsResult) (domain.PoolMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.PoolMetrics{}, f.err
	}
	f.results = append(f.results, res)
	row := domain.NewPoolMetrics(src, res)
	row.ID = "row-1"
	row.CreatedAt = time.Unix(1_700_003_600, 0).UTC()
	return row, nil
}

type fakeArchiver struct {
	calls int
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, _ domain.Source, _ domain.SwapWindow, _ time.Time) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "windows/key.csv", nil
}

type fakeRaiser struct {
	raised []domain.Alert
}

func (f *fakeRaiser) Raise(_ context.Context, alerts []domain.Alert) error {
	f.raised = append(f.raised, alerts...)
	return nil
}

// fakeQueue hands out its pending jobs once and then blocks until ctx ends.
type fakeQueue struct {
	mu      sync.Mutex
	pending []domain.QueuedJob
	acked   []string
	ackedCh chan string
}

func newFakeQueue(jobs ...domain.QueuedJob) *fakeQueue {
	return &fakeQueue{pending: jobs, ackedCh: make(chan string, len(jobs))}
}

func (f *fakeQueue) Enqueue(_ context.Context, job domain.MetricsJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, domain.QueuedJob{Receipt: job.PoolID, Job: job})
	return job.PoolID, nil
}

func (f *fakeQueue) Dequeue(ctx context.Context, _ string, count int, block time.Duration) ([]domain.QueuedJob, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		n := count
		if n > len(f.pending) {
			n = len(f.pending)
		}
		out := f.pending[:n]
		f.pending = f.pending[n:]
		f.mu.Unlock()
		return out, nil
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (f *fakeQueue) Ack(_ context.Context, receipt string) error {
	f.mu.Lock()
	f.acked = append(f.acked, receipt)
	f.mu.Unlock()
	select {
	case f.ackedCh <- receipt:
	default:
	}
	return nil
}

type fakeEnqueuer struct {
	mu     sync.Mutex
	rounds [][]string
	err    error
}

func (f *fakeEnqueuer) EnqueueAll(_ context.Context, poolIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = append(f.rounds, poolIDs)
	if f.err != nil {
		return 0, f.err
	}
	return len(poolIDs), nil
}

func (f *fakeEnqueuer) roundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rounds)
}
