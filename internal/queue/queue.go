// Package queue implements the page-fetch work queue over a redis list with
// a processing side-list, so a job is only removed for good once its consumer
// acknowledges it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/wod-ingestor/internal/logger"
)

// Job is one unit of fetch work: a single page of the posts listing.
type Job struct {
	Page         int `json:"page"`
	PostsPerPage int `json:"posts_per_page"`
}

// Receipt identifies a dequeued job until it is acknowledged or requeued.
type Receipt struct {
	payload string
}

// Queue is a redis-list work queue.
type Queue struct {
	client     redis.UniversalClient
	name       string
	processing string
	logger     logger.Logger
}

// New creates a queue named name. In-flight jobs live on "<name>:processing"
// until acknowledged.
func New(client redis.UniversalClient, name string, log logger.Logger) *Queue {
	return &Queue{
		client:     client,
		name:       name,
		processing: name + ":processing",
		logger:     log,
	}
}

// Enqueue appends a job to the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Debug("job enqueued",
		logger.String("queue", q.name),
		logger.Int("page", job.Page),
	)
	return nil
}

// Dequeue moves one job to the processing list and returns it, blocking up to
// timeout. A drained queue returns (Job{}, Receipt{}, false, nil).
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Job, Receipt, bool, error) {
	payload, err := q.client.BLMove(ctx, q.name, q.processing, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, Receipt{}, false, nil
	}
	if err != nil {
		return Job{}, Receipt{}, false, fmt.Errorf("dequeue job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		// A malformed payload can never succeed; drop it rather than loop.
		q.logger.Warn("dropping malformed job payload",
			logger.String("queue", q.name),
			logger.Error(err),
		)
		q.client.LRem(ctx, q.processing, 1, payload)
		return Job{}, Receipt{}, false, fmt.Errorf("decode job: %w", err)
	}

	return job, Receipt{payload: payload}, true, nil
}

// Ack removes an in-flight job permanently.
func (q *Queue) Ack(ctx context.Context, r Receipt) error {
	if err := q.client.LRem(ctx, q.processing, 1, r.payload).Err(); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

// Requeue returns an in-flight job to the queue after a partial failure so a
// later run can retry it.
func (q *Queue) Requeue(ctx context.Context, r Receipt) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processing, 1, r.payload)
	pipe.LPush(ctx, q.name, r.payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	return nil
}

// Len returns the number of jobs waiting (not in flight).
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
