package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akbaridria/obrix/internal/domain"
)

const (
	// JobStream is the Redis stream holding pending metrics jobs.
	JobStream = "jobs:metrics"
	// JobGroup is the consumer group shared by all workers.
	JobGroup = "metrics-workers"

	// streamMaxLen is the approximate maximum length of the job stream,
	// enforced via XADD MAXLEN ~.
	streamMaxLen int64 = 10000
)

// JobQueue implements domain.JobQueue on a Redis stream read through a
// consumer group, so each job is delivered to exactly one worker.
type JobQueue struct {
	rdb    *redis.Client
	stream string
	group  string
}

// NewJobQueue creates a JobQueue and ensures its consumer group exists.
func NewJobQueue(ctx context.Context, c *Client) (*JobQueue, error) {
	q := &JobQueue{rdb: c.Underlying(), stream: JobStream, group: JobGroup}
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("redis: create group %s on %s: %w", q.group, q.stream, err)
	}
	return q, nil
}

// isBusyGroup reports the error XGROUP CREATE returns for an existing group.
func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Enqueue appends a job and returns its stream entry id.
func (q *JobQueue) Enqueue(ctx context.Context, job domain.MetricsJob) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("redis: marshal job for pool %s: %w", job.PoolID, err)
	}
	id, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("redis: enqueue job for pool %s: %w", job.PoolID, err)
	}
	return id, nil
}

// Dequeue reads up to count new jobs for consumer, blocking for at most
// block. It returns an empty slice (not an error) when nothing arrived.
// Entries with an undecodable payload are acknowledged and skipped.
func (q *JobQueue) Dequeue(ctx context.Context, consumer string, count int, block time.Duration) ([]domain.QueuedJob, error) {
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(count),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: dequeue jobs for %s: %w", consumer, err)
	}

	var jobs []domain.QueuedJob
	for _, s := range streams {
		for _, msg := range s.Messages {
			job, err := decodeJob(msg.Values)
			if err != nil {
				_ = q.Ack(ctx, msg.ID)
				continue
			}
			if job.ID == "" {
				job.ID = msg.ID
			}
			jobs = append(jobs, domain.QueuedJob{Receipt: msg.ID, Job: job})
		}
	}
	return jobs, nil
}

// Ack marks a delivered job as done.
func (q *JobQueue) Ack(ctx context.Context, receipt string) error {
	if err := q.rdb.XAck(ctx, q.stream, q.group, receipt).Err(); err != nil {
		return fmt.Errorf("redis: ack job %s: %w", receipt, err)
	}
	return nil
}

// decodeJob extracts the JSON payload field of a stream entry.
func decodeJob(values map[string]interface{}) (domain.MetricsJob, error) {
	raw, ok := values["payload"]
	if !ok {
		return domain.MetricsJob{}, errors.New("missing payload field")
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return domain.MetricsJob{}, fmt.Errorf("unexpected payload type %T", raw)
	}

	var job domain.MetricsJob
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.MetricsJob{}, fmt.Errorf("decode job: %w", err)
	}
	if job.PoolID == "" {
		return domain.MetricsJob{}, errors.New("job without pool id")
	}
	return job, nil
}

// Compile-time interface check.
var _ domain.JobQueue = (*JobQueue)(nil)
