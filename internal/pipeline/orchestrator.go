package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the worker goroutines: the scheduler that enqueues one job
// per watched pool, and the processor that drains the queue.
type Orchestrator struct {
	scheduler *Scheduler
	processor *Processor
	interval  time.Duration
	consumer  string
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil scheduler runs the processor
// alone, for workers that only consume externally enqueued jobs.
func NewOrchestrator(
	scheduler *Scheduler,
	processor *Processor,
	interval time.Duration,
	consumer string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scheduler: scheduler,
		processor: processor,
		interval:  interval,
		consumer:  consumer,
		logger:    logger,
	}
}

// Run starts the sub-loops under an errgroup. If any loop returns a
// non-context error, the shared context is cancelled and Run returns that
// error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("worker orchestrator starting",
		slog.Duration("interval", o.interval),
		slog.String("consumer", o.consumer),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.scheduler != nil {
		g.Go(func() error {
			err := o.scheduler.RunLoop(ctx, o.interval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("scheduler: %w", err)
		})
	}

	g.Go(func() error {
		err := o.processor.RunLoop(ctx, o.consumer)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("processor: %w", err)
	})

	if err := g.Wait(); err != nil {
		o.logger.Error("worker orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("worker orchestrator stopped cleanly")
	return nil
}
