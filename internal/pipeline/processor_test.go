package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akbaridria/obrix/internal/alert"
	"github.com/akbaridria/obrix/internal/analytics"
	"github.com/akbaridria/obrix/internal/domain"
	"github.com/akbaridria/obrix/internal/instrumentation"
)

type harness struct {
	proc     *Processor
	locks    *fakeLocks
	fetcher  *fakeFetcher
	recorder *fakeRecorder
	archiver *fakeArchiver
	raiser   *fakeRaiser
	queue    *fakeQueue
	metrics  *instrumentation.Metrics
}

func newHarness(t *testing.T, window domain.SwapWindow, th alert.Thresholds) *harness {
	t.Helper()
	engine := analytics.New(analytics.DefaultConfig())
	h := &harness{
		locks:    newFakeLocks(),
		fetcher:  &fakeFetcher{window: window},
		recorder: &fakeRecorder{},
		archiver: &fakeArchiver{},
		raiser:   &fakeRaiser{},
		queue:    newFakeQueue(),
		metrics:  instrumentation.NewMetrics(prometheus.NewRegistry()),
	}
	h.proc = NewProcessor(ProcessorConfig{
		Source:     domain.Source{Protocol: "uniswap", Chain: "ethereum", Version: "v4"},
		Lookback:   2 * time.Hour,
		FetchLimit: 1000,
		LockTTL:    time.Minute,
		JobTimeout: 10 * time.Second,
		Block:      20 * time.Millisecond,
	}, ProcessorDeps{
		Queue:     h.queue,
		Locks:     h.locks,
		Fetcher:   h.fetcher,
		Engine:    engine,
		Recorder:  h.recorder,
		Archiver:  h.archiver,
		Evaluator: alert.NewEvaluator(th, engine),
		Alerts:    h.raiser,
		Metrics:   h.metrics,
	}, discardLogger())
	h.proc.now = func() time.Time { return time.Unix(1_700_010_000, 0).UTC() }
	return h
}

var thresholdsOff = alert.Thresholds{}

func jobFor(pool string) domain.MetricsJob {
	return domain.MetricsJob{ID: "1-0", PoolID: pool}
}

func TestProcess_ComputesAndRecords(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 1, 2, 3), alert.Thresholds{})

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)

	require.Len(t, h.recorder.results, 1)
	res := h.recorder.results[0]
	assert.False(t, res.IsEmpty)
	assert.True(t, res.Success.TWAP)
	assert.True(t, res.Success.Volatility)
	assert.Greater(t, res.TWAP, 0.0)

	assert.Equal(t, 1, h.archiver.calls)
	assert.Equal(t, []string{"metrics:0xpool"}, h.locks.acquired)
	assert.Empty(t, h.locks.held, "lock must be released")
	assert.Equal(t, 1000, h.fetcher.first)
	assert.Equal(t, time.Unix(1_700_010_000, 0).UTC().Add(-2*time.Hour), h.fetcher.since)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.JobsTotal.WithLabelValues(OutcomeOK)))
	// Three swaps are below the mean-reversion minimum.
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CalculatorFailures.WithLabelValues("mean_reversion")))
}

func TestProcess_EmptyWindowStillRecorded(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 5), alert.Thresholds{VolatilityAbove: 0.0001})

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome)

	require.Len(t, h.recorder.results, 1)
	assert.True(t, h.recorder.results[0].IsEmpty)
	assert.Empty(t, h.raiser.raised)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.CalculatorFailures.WithLabelValues("twap")))
}

func TestProcess_SkipsWhenLockHeld(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 1, 2), alert.Thresholds{})
	h.locks.held["metrics:0xpool"] = true

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, h.fetcher.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.JobsTotal.WithLabelValues(OutcomeSkipped)))
}

func TestProcess_FetchErrorFails(t *testing.T) {
	h := newHarness(t, domain.SwapWindow{}, alert.Thresholds{})
	h.fetcher.err = errors.New("indexer down")

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Empty(t, h.recorder.results)
	assert.Empty(t, h.locks.held)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ErrorsTotal.WithLabelValues("processor", "fetch")))
}

func TestProcess_RejectsUnorderedWindow(t *testing.T) {
	w := windowOf("0xpool", 1, 2, 3)
	w.Swaps[2].Timestamp = w.Swaps[0].Timestamp - 1
	h := newHarness(t, w, alert.Thresholds{})

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.ErrorIs(t, err, analytics.ErrUnorderedSwaps)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Empty(t, h.recorder.results)
}

func TestProcess_RecordErrorFails(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 1, 2), alert.Thresholds{})
	h.recorder.err = errors.New("db gone")

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Zero(t, h.archiver.calls)
}

func TestProcess_ArchiveErrorIsNotFatal(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 1, 2), alert.Thresholds{})
	h.archiver.err = errors.New("s3 down")

	outcome, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ErrorsTotal.WithLabelValues("processor", "archive")))
}

func TestProcess_RaisesAlerts(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 1, 2, 3), alert.Thresholds{VolatilityAbove: 0.0001})

	_, err := h.proc.Process(context.Background(), jobFor("0xpool"))
	require.NoError(t, err)

	require.NotEmpty(t, h.raiser.raised)
	assert.Equal(t, domain.EventVolatilitySpike, h.raiser.raised[0].Event)
	assert.Equal(t, "0xpool", h.raiser.raised[0].PoolID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AlertsTotal.WithLabelValues(domain.EventVolatilitySpike)))
}

func TestRunLoop_ProcessesAndAcks(t *testing.T) {
	h := newHarness(t, windowOf("0xpool", 1, 2), alert.Thresholds{})
	h.queue = newFakeQueue(
		domain.QueuedJob{Receipt: "1-0", Job: jobFor("0xpool")},
		domain.QueuedJob{Receipt: "2-0", Job: jobFor("0xother")},
	)
	h.proc.queue = h.queue

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.proc.RunLoop(ctx, "worker-1") }()

	for i := 0; i < 2; i++ {
		select {
		case <-h.queue.ackedCh:
		case <-time.After(2 * time.Second):
			t.Fatal("job was not acknowledged")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop")
	}

	assert.ElementsMatch(t, []string{"1-0", "2-0"}, h.queue.acked)
	assert.Len(t, h.recorder.results, 2)
}
