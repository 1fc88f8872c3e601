package domain

import "time"

// MetricsJob asks the worker to compute metrics for one pool.
type MetricsJob struct {
	ID         string    `json:"id"`
	PoolID     string    `json:"poolId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// QueuedJob is a job delivered by a JobQueue together with the receipt needed
// to acknowledge it.
type QueuedJob struct {
	Receipt string
	Job     MetricsJob
}
