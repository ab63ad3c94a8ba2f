package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jobprep-backend/internal/models"
)

const feedbackQueueName = "queue:feedback-generation"

// Queue is the producer side of the background pipeline: it enqueues
// feedback jobs and publishes per-user events for the websocket hub.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) EnqueueFeedback(ctx context.Context, job models.FeedbackJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode feedback job: %w", err)
	}
	if err := q.redis.LPush(ctx, feedbackQueueName, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to enqueue feedback job: %w", err)
	}
	return nil
}

// PublishUpdate fans an event out to the user's websocket connections via
// the per-user pub/sub channel.
func (q *Queue) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	q.redis.Publish(ctx, "user_updates:"+userID.String(), string(data))
}
