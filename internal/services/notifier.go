package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/models"
)

// Notifier delivers a user-facing notification. Delivery is best effort:
// callers log failures and move on, they never retry or block on it.
type Notifier interface {
	Deliver(ctx context.Context, userID uuid.UUID, title, body, groupKey string) error
}

// PushNotifier publishes notifications to the user's redis pub/sub channel;
// the websocket hub forwards them to any connected clients. Nobody listening
// means the message evaporates, which is the contract.
type PushNotifier struct {
	redis *redis.Client
}

func NewPushNotifier(redisClient *redis.Client) *PushNotifier {
	return &PushNotifier{redis: redisClient}
}

// NotificationChannel is the per-user pub/sub channel name.
func NotificationChannel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

func (n *PushNotifier) Deliver(ctx context.Context, userID uuid.UUID, title, body, groupKey string) error {
	msg := models.WSMessage{
		Type: "notification",
		Payload: models.NotificationEvent{
			Title:    title,
			Body:     body,
			GroupKey: groupKey,
			SentAt:   time.Now().UTC(),
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.redis.Publish(ctx, NotificationChannel(userID), payload).Err()
}
