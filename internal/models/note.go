package models

import (
	"time"

	"github.com/google/uuid"
)

type ImportanceTier string

const (
	TierLow    ImportanceTier = "low"
	TierMedium ImportanceTier = "medium"
	TierHigh   ImportanceTier = "high"
)

func (t ImportanceTier) Valid() bool {
	switch t {
	case TierLow, TierMedium, TierHigh:
		return true
	}
	return false
}

// MaxReminderStages caps how many reminder timestamps a note carries.
const MaxReminderStages = 5

type LearningNote struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Category       string         `json:"category"`
	Text           string         `json:"text"`
	Importance     ImportanceTier `json:"importance"`
	ReviewCount    int            `json:"review_count"`
	NextReviewAt   time.Time      `json:"next_review_at"`
	ReminderStages []time.Time    `json:"reminder_stages"`
	ReminderFired  []bool         `json:"reminder_fired"`
	CreatedAt      time.Time      `json:"created_at"`
}

type CreateNoteRequest struct {
	Category   string         `json:"category"`
	Text       string         `json:"text"`
	Importance ImportanceTier `json:"importance"`
}
