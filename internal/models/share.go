package models

import (
	"time"

	"github.com/google/uuid"
)

type ShareStatus string

const (
	SharePending  ShareStatus = "pending"
	ShareAccepted ShareStatus = "accepted"
	ShareIgnored  ShareStatus = "ignored"
)

// NoteShare is dual-written to the sender's outbox and the recipient's inbox
// under the same id. The note fields are a snapshot taken at send time, never
// a live reference to the sender's note.
type NoteShare struct {
	ID          uuid.UUID   `json:"id"`
	SenderID    uuid.UUID   `json:"sender_id"`
	RecipientID uuid.UUID   `json:"recipient_id"`
	Category    string      `json:"category"`
	Text        string      `json:"text"`
	Message     *string     `json:"message,omitempty"`
	Status      ShareStatus `json:"status"`
	SentAt      time.Time   `json:"sent_at"`
	RespondedAt *time.Time  `json:"responded_at,omitempty"`
}

type SendShareRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	NoteID      uuid.UUID `json:"note_id"`
	Message     *string   `json:"message"`
}

type AcceptShareRequest struct {
	Importance    ImportanceTier `json:"importance"`
	FirstReviewAt time.Time      `json:"first_review_at"`
}
