package review

import (
	"errors"
	"testing"
	"time"

	"studyhub-backend/internal/models"
)

var anchor = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestComputeNextReview_HighTierFirstReview(t *testing.T) {
	got, err := ComputeNextReview(models.TierHigh, 0, anchor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := anchor.AddDate(0, 0, 1)
	if !got.Equal(want) {
		t.Errorf("expected first high-tier review at %v, got %v", want, got)
	}
}

func TestComputeNextReview_TableValues(t *testing.T) {
	tests := []struct {
		name     string
		tier     models.ImportanceTier
		count    int
		wantDays int
	}{
		{"high second", models.TierHigh, 1, 3},
		{"high last", models.TierHigh, 3, 14},
		{"medium first", models.TierMedium, 0, 2},
		{"medium last", models.TierMedium, 2, 10},
		{"low first", models.TierLow, 0, 3},
		{"low last", models.TierLow, 2, 14},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeNextReview(tc.tier, tc.count, anchor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := anchor.AddDate(0, 0, tc.wantDays)
			if !got.Equal(want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestComputeNextReview_ExtrapolatesPastTable(t *testing.T) {
	// Medium table is {2,5,10}; count 3 is one past the end and should land
	// at last-offset * 2, count 4 at last-offset * 3, and so on.
	tests := []struct {
		count    int
		wantDays int
	}{
		{3, 20},
		{4, 30},
		{10, 90},
	}

	for _, tc := range tests {
		got, err := ComputeNextReview(models.TierMedium, tc.count, anchor)
		if err != nil {
			t.Fatalf("unexpected error at count %d: %v", tc.count, err)
		}
		want := anchor.AddDate(0, 0, tc.wantDays)
		if !got.Equal(want) {
			t.Errorf("count %d: expected %v, got %v", tc.count, want, got)
		}
	}
}

func TestComputeNextReview_StrictlyIncreasing(t *testing.T) {
	for _, tier := range []models.ImportanceTier{models.TierLow, models.TierMedium, models.TierHigh} {
		prev, err := ComputeNextReview(tier, 0, anchor)
		if err != nil {
			t.Fatalf("tier %s: %v", tier, err)
		}
		for c := 1; c < 20; c++ {
			next, err := ComputeNextReview(tier, c, anchor)
			if err != nil {
				t.Fatalf("tier %s count %d: %v", tier, c, err)
			}
			if !next.After(prev) {
				t.Errorf("tier %s: review %d (%v) not after review %d (%v)", tier, c, next, c-1, prev)
			}
			prev = next
		}
	}
}

func TestComputeNextReview_Deterministic(t *testing.T) {
	a, _ := ComputeNextReview(models.TierLow, 7, anchor)
	b, _ := ComputeNextReview(models.TierLow, 7, anchor)
	if !a.Equal(b) {
		t.Errorf("same inputs produced %v and %v", a, b)
	}
}

func TestComputeNextReview_RejectsBadInput(t *testing.T) {
	if _, err := ComputeNextReview(models.ImportanceTier("urgent"), 0, anchor); err == nil {
		t.Error("expected error for unknown tier")
	} else {
		var tierErr *UnknownTierError
		if !errors.As(err, &tierErr) {
			t.Errorf("expected UnknownTierError, got %T", err)
		}
	}

	if _, err := ComputeNextReview(models.TierHigh, -1, anchor); err == nil {
		t.Error("expected error for negative review count")
	} else {
		var countErr *NegativeCountError
		if !errors.As(err, &countErr) {
			t.Errorf("expected NegativeCountError, got %T", err)
		}
	}
}

func TestReminderStages(t *testing.T) {
	stages, err := ReminderStages(models.TierLow, anchor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDays := []int{3, 7, 14}
	if len(stages) != len(wantDays) {
		t.Fatalf("expected %d stages, got %d", len(wantDays), len(stages))
	}
	for i, days := range wantDays {
		want := anchor.AddDate(0, 0, days)
		if !stages[i].Equal(want) {
			t.Errorf("stage %d: expected %v, got %v", i, want, stages[i])
		}
	}
}

func TestReminderStages_UnknownTier(t *testing.T) {
	if _, err := ReminderStages(models.ImportanceTier(""), anchor); err == nil {
		t.Error("expected error for unknown tier")
	}
}
