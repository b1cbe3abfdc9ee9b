package models

import "time"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NotificationEvent is the aggregated, user-facing notification pushed over
// the websocket channel. GroupKey lets the client collapse repeats.
type NotificationEvent struct {
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	GroupKey string    `json:"group_key,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}
