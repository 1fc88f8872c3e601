package service

import (
	"context"
	"fmt"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

// JobService enqueues metrics jobs for pools.
type JobService struct {
	queue domain.JobQueue
	now   func() time.Time
}

// NewJobService creates a JobService on top of queue.
func NewJobService(queue domain.JobQueue) *JobService {
	return &JobService{queue: queue, now: time.Now}
}

// Enqueue validates poolID and schedules one metrics job for it. The returned
// job carries the queue's entry id.
func (s *JobService) Enqueue(ctx context.Context, poolID string) (domain.MetricsJob, error) {
	id, err := domain.NormalizePoolID(poolID)
	if err != nil {
		return domain.MetricsJob{}, err
	}
	job := domain.MetricsJob{PoolID: id, EnqueuedAt: s.now().UTC()}
	entryID, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		return domain.MetricsJob{}, fmt.Errorf("job_service: enqueue pool %s: %w", id, err)
	}
	job.ID = entryID
	return job, nil
}

// EnqueueAll schedules one job per pool and stops at the first failure.
func (s *JobService) EnqueueAll(ctx context.Context, poolIDs []string) (int, error) {
	n := 0
	for _, p := range poolIDs {
		if _, err := s.Enqueue(ctx, p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
