package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// JobEnqueuer schedules one metrics job per pool.
type JobEnqueuer interface {
	EnqueueAll(ctx context.Context, poolIDs []string) (int, error)
}

// Scheduler periodically enqueues a metrics job for every watched pool.
type Scheduler struct {
	jobs   JobEnqueuer
	pools  []string
	logger *slog.Logger
}

// NewScheduler creates a Scheduler for the given pools.
func NewScheduler(jobs JobEnqueuer, pools []string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		pools:  pools,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Tick enqueues one round of jobs.
func (s *Scheduler) Tick(ctx context.Context) {
	if len(s.pools) == 0 {
		return
	}
	n, err := s.jobs.EnqueueAll(ctx, s.pools)
	if err != nil {
		s.logger.Error("enqueue round failed",
			slog.Int("enqueued", n),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("enqueued metrics jobs", slog.Int("count", n))
}

// RunLoop enqueues a round immediately and then once per interval until ctx
// is cancelled.
func (s *Scheduler) RunLoop(ctx context.Context, interval time.Duration) error {
	s.Tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
