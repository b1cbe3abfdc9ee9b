package models

import (
	"time"

	"github.com/google/uuid"
)

// StreakState is one row per user; last_active_day is a calendar day in the
// user's local timezone, not a UTC instant.
type StreakState struct {
	UserID        uuid.UUID  `json:"user_id"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastActiveDay *time.Time `json:"last_active_day"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Trophy is a read-side projection of streak length against a fixed threshold.
type Trophy struct {
	Threshold int        `json:"threshold"`
	Achieved  bool       `json:"achieved"`
	AwardedAt *time.Time `json:"awarded_at,omitempty"`
}

type CompleteSessionRequest struct {
	Timezone string `json:"timezone"`
}
