package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
)

var _ secondary.TaskBackend = (*Queue)(nil)

// Queue pushes tasks onto per-class Redis lists consumed by the execution
// fleet with BRPOP.
type Queue struct {
	redisClient *redis.Client
	queues      map[domain.TaskClass]string
	logger      primary.Logger
}

func NewQueue(redisClient *redis.Client, queues map[domain.TaskClass]string, logger primary.Logger) *Queue {
	return &Queue{
		redisClient: redisClient,
		queues:      queues,
		logger:      logger,
	}
}

func (q *Queue) Name() string {
	return "redis"
}

func (q *Queue) Enqueue(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload) error {
	queue, ok := q.queues[class]
	if !ok {
		return fmt.Errorf("no queue configured for task class %q", class)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	if err := q.redisClient.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push onto %s: %w", queue, err)
	}

	q.logger.Debug("Task pushed", "queue", queue, "jobId", payload.JobID)
	return nil
}
