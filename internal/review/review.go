// Package review computes spaced-repetition schedules for learning notes.
// Everything here is pure: callers supply the anchor instant and persist the
// results themselves.
package review

import (
	"fmt"
	"time"

	"studyhub-backend/internal/models"
)

type UnknownTierError struct {
	Tier models.ImportanceTier
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown importance tier %q", string(e.Tier))
}

type NegativeCountError struct {
	Count int
}

func (e *NegativeCountError) Error() string {
	return fmt.Sprintf("review count must be non-negative, got %d", e.Count)
}

// ComputeNextReview returns the instant of review number reviewCount, counted
// from anchor. Within the tier's table it uses the tabulated day offset; past
// the end of the table it keeps pushing reviews out by repeating the last
// offset scaled by how far beyond the table the count has gone.
func ComputeNextReview(tier models.ImportanceTier, reviewCount int, anchor time.Time) (time.Time, error) {
	if reviewCount < 0 {
		return time.Time{}, &NegativeCountError{Count: reviewCount}
	}

	offsets, err := Offsets(tier)
	if err != nil {
		return time.Time{}, err
	}

	if reviewCount < len(offsets) {
		return anchor.AddDate(0, 0, offsets[reviewCount]), nil
	}

	last := offsets[len(offsets)-1]
	factor := reviewCount - len(offsets) + 2
	return anchor.AddDate(0, 0, last*factor), nil
}

// ReminderStages maps the tier's full offset table onto an anchor, producing
// the reminder timestamps a cloned note is seeded with on share acceptance.
func ReminderStages(tier models.ImportanceTier, anchor time.Time) ([]time.Time, error) {
	offsets, err := Offsets(tier)
	if err != nil {
		return nil, err
	}

	n := len(offsets)
	if n > models.MaxReminderStages {
		n = models.MaxReminderStages
	}

	stages := make([]time.Time, n)
	for i := 0; i < n; i++ {
		stages[i] = anchor.AddDate(0, 0, offsets[i])
	}
	return stages, nil
}
