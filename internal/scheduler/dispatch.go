package scheduler

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/models"
)

// QueueReminderDispatch is the redis list the worker pool consumes.
const QueueReminderDispatch = "queue:reminder-dispatch"

// RedisDispatcher pushes fired jobs onto a redis queue so the scheduler's
// timers never execute handler I/O themselves.
type RedisDispatcher struct {
	client *redis.Client
}

func NewRedisDispatcher(client *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{client: client}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, fired models.FiredJob) error {
	payload, err := json.Marshal(fired)
	if err != nil {
		return err
	}
	return d.client.LPush(ctx, QueueReminderDispatch, payload).Err()
}
