package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akbaridria/obrix/internal/alert"
	"github.com/akbaridria/obrix/internal/analytics"
	"github.com/akbaridria/obrix/internal/domain"
	"github.com/akbaridria/obrix/internal/instrumentation"
)

// SwapFetcher retrieves a pool's swaps from the indexer.
type SwapFetcher interface {
	FetchPoolSwaps(ctx context.Context, poolID string, since time.Time, first int) (domain.SwapWindow, error)
}

// MetricsRecorder persists a computation result.
type MetricsRecorder interface {
	Record(ctx context.Context, src domain.Source, res domain.MetricsResult) (domain.PoolMetrics, error)
}

// WindowArchiver stores the raw swaps behind a computation.
type WindowArchiver interface {
	Archive(ctx context.Context, src domain.Source, window domain.SwapWindow, at time.Time) (string, error)
}

// AlertRaiser delivers raised alerts.
type AlertRaiser interface {
	Raise(ctx context.Context, alerts []domain.Alert) error
}

// EventNotifier reports failed jobs to operators.
type EventNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ProcessorConfig holds the tunables of a Processor.
type ProcessorConfig struct {
	Source      domain.Source
	Lookback    time.Duration
	FetchLimit  int
	LockTTL     time.Duration
	JobTimeout  time.Duration
	Concurrency int
	// Block bounds how long one Dequeue call waits for new jobs.
	Block time.Duration
}

// Processor turns queued jobs into persisted metrics: fetch the window,
// validate, compute, record, archive and alert.
type Processor struct {
	cfg       ProcessorConfig
	queue     domain.JobQueue
	locks     domain.LockManager
	fetcher   SwapFetcher
	engine    *analytics.Engine
	recorder  MetricsRecorder
	archiver  WindowArchiver
	evaluator *alert.Evaluator
	alerts    AlertRaiser
	notifier  EventNotifier
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// ProcessorDeps groups the collaborators of a Processor. Archiver, Evaluator,
// Alerts and Notifier are optional.
type ProcessorDeps struct {
	Queue     domain.JobQueue
	Locks     domain.LockManager
	Fetcher   SwapFetcher
	Engine    *analytics.Engine
	Recorder  MetricsRecorder
	Archiver  WindowArchiver
	Evaluator *alert.Evaluator
	Alerts    AlertRaiser
	Notifier  EventNotifier
	Metrics   *instrumentation.Metrics
}

// NewProcessor creates a Processor.
func NewProcessor(cfg ProcessorConfig, deps ProcessorDeps, logger *slog.Logger) *Processor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &Processor{
		cfg:       cfg,
		queue:     deps.Queue,
		locks:     deps.Locks,
		fetcher:   deps.Fetcher,
		engine:    deps.Engine,
		recorder:  deps.Recorder,
		archiver:  deps.Archiver,
		evaluator: deps.Evaluator,
		alerts:    deps.Alerts,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    logger.With(slog.String("component", "processor")),
		now:       time.Now,
	}
}

// Job outcomes reported to metrics and logs.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Process handles one job and reports its outcome. A pool already being
// processed elsewhere is skipped.
func (p *Processor) Process(ctx context.Context, job domain.MetricsJob) (string, error) {
	outcome, err := p.process(ctx, job)
	p.metrics.RecordJob(outcome)
	return outcome, err
}

func (p *Processor) process(ctx context.Context, job domain.MetricsJob) (string, error) {
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}

	unlock, err := p.locks.Acquire(ctx, PoolLockKey(job.PoolID), p.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return OutcomeSkipped, nil
		}
		p.metrics.RecordError("processor", "lock")
		return OutcomeFailed, fmt.Errorf("lock pool %s: %w", job.PoolID, err)
	}
	defer unlock()

	start := p.now()
	since := start.Add(-p.cfg.Lookback)
	window, err := p.fetcher.FetchPoolSwaps(ctx, job.PoolID, since, p.cfg.FetchLimit)
	if err != nil {
		p.metrics.RecordError("processor", "fetch")
		return OutcomeFailed, fmt.Errorf("fetch pool %s: %w", job.PoolID, err)
	}
	p.metrics.RecordFetch(msSince(start, p.now()), len(window.Swaps))

	if err := analytics.ValidateWindow(window); err != nil {
		p.metrics.RecordError("processor", "validate")
		return OutcomeFailed, fmt.Errorf("validate pool %s: %w", job.PoolID, err)
	}

	computeStart := p.now()
	res := p.engine.Compute(window)
	p.metrics.RecordCompute(msSince(computeStart, p.now()))
	if !res.IsEmpty {
		p.recordCalculatorFailures(res.Success)
	}

	row, err := p.recorder.Record(ctx, p.cfg.Source, res)
	if err != nil {
		p.metrics.RecordError("processor", "record")
		return OutcomeFailed, fmt.Errorf("record pool %s: %w", job.PoolID, err)
	}

	if p.archiver != nil {
		key, err := p.archiver.Archive(ctx, p.cfg.Source, window, row.CreatedAt)
		if err != nil {
			p.metrics.RecordError("processor", "archive")
			p.logger.WarnContext(ctx, "archive window failed",
				slog.String("pool_id", job.PoolID),
				slog.String("error", err.Error()),
			)
		} else if key != "" {
			p.logger.DebugContext(ctx, "window archived", slog.String("key", key))
		}
	}

	if p.evaluator != nil && p.alerts != nil {
		raised := p.evaluator.Evaluate(window, res, p.now())
		for _, a := range raised {
			p.metrics.RecordAlert(a.Event)
		}
		if len(raised) > 0 {
			if err := p.alerts.Raise(ctx, raised); err != nil {
				p.metrics.RecordError("processor", "alert")
				p.logger.WarnContext(ctx, "raise alerts failed",
					slog.String("pool_id", job.PoolID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	p.logger.InfoContext(ctx, "pool metrics computed",
		slog.String("pool_id", job.PoolID),
		slog.String("metrics_id", row.ID),
		slog.Int("swaps", len(window.Swaps)),
		slog.Bool("empty", res.IsEmpty),
		slog.Float64("twap", res.TWAP),
		slog.Float64("volatility", res.Volatility),
		slog.Float64("mean_reversion", res.MeanReversion),
	)

	if res.IsEmpty {
		return OutcomeEmpty, nil
	}
	return OutcomeOK, nil
}

func (p *Processor) recordCalculatorFailures(flags domain.SuccessFlags) {
	if !flags.TWAP {
		p.metrics.RecordCalculatorFailure("twap")
	}
	if !flags.Volatility {
		p.metrics.RecordCalculatorFailure("volatility")
	}
	if !flags.MeanReversion {
		p.metrics.RecordCalculatorFailure("mean_reversion")
	}
}

// RunLoop consumes the job queue with cfg.Concurrency goroutines until ctx is
// cancelled. Every delivered job is acknowledged after processing, including
// failed ones; the next scheduled round retries the pool.
func (p *Processor) RunLoop(ctx context.Context, consumer string) error {
	p.logger.Info("processor loop starting",
		slog.String("consumer", consumer),
		slog.Int("concurrency", p.cfg.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Concurrency; i++ {
		name := fmt.Sprintf("%s-%d", consumer, i)
		g.Go(func() error {
			return p.consume(gctx, name)
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		p.logger.Info("processor loop stopped")
		return ctx.Err()
	}
	return err
}

func (p *Processor) consume(ctx context.Context, consumer string) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		batch, err := p.queue.Dequeue(ctx, consumer, 1, p.cfg.Block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.metrics.RecordError("processor", "dequeue")
			p.logger.Error("dequeue failed",
				slog.String("consumer", consumer),
				slog.String("error", err.Error()),
			)
			if !sleepCtx(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		for _, qj := range batch {
			outcome, err := p.Process(ctx, qj.Job)
			if err != nil {
				p.logger.Error("job failed",
					slog.String("job_id", qj.Job.ID),
					slog.String("pool_id", qj.Job.PoolID),
					slog.String("error", err.Error()),
				)
				p.notifyFailure(ctx, qj.Job, err)
			} else if outcome == OutcomeSkipped {
				p.logger.Debug("pool busy, job skipped", slog.String("pool_id", qj.Job.PoolID))
			}

			ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := p.queue.Ack(ackCtx, qj.Receipt); err != nil {
				p.logger.Warn("ack failed",
					slog.String("receipt", qj.Receipt),
					slog.String("error", err.Error()),
				)
			}
			cancel()
		}
	}
}

func (p *Processor) notifyFailure(ctx context.Context, job domain.MetricsJob, jobErr error) {
	if p.notifier == nil {
		return
	}
	msg := fmt.Sprintf("pool %s: %v", job.PoolID, jobErr)
	if err := p.notifier.Notify(ctx, domain.EventError, "Metrics job failed", msg); err != nil {
		p.logger.Warn("failure notification not delivered", slog.String("error", err.Error()))
	}
}

// PoolLockKey names the lock serialising metric computations for one pool.
func PoolLockKey(poolID string) string {
	return "metrics:" + poolID
}

func msSince(start, end time.Time) float64 {
	return float64(end.Sub(start).Microseconds()) / 1000
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
