package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/streak"
)

type StreakService struct {
	streaks  *repository.StreakRepo
	notifier Notifier
	loc      *time.Location
}

func NewStreakService(streaks *repository.StreakRepo, notifier Notifier, loc *time.Location) *StreakService {
	if loc == nil {
		loc = time.Local
	}
	return &StreakService{streaks: streaks, notifier: notifier, loc: loc}
}

// CompleteSession records one finished study session. The streak update and
// the trophy evaluation run in one transaction keyed by the user, so two
// devices finishing sessions at once cannot double-increment the streak or
// double-award a trophy. tzName is the client's IANA timezone; the streak
// day boundary is the user's local midnight, falling back to the server
// location when unset or unknown.
func (s *StreakService) CompleteSession(ctx context.Context, userID uuid.UUID, tzName string) (*models.StreakState, []int, error) {
	loc := s.loc
	if tzName != "" {
		if parsed, err := time.LoadLocation(tzName); err == nil {
			loc = parsed
		}
	}
	today := streak.DayOf(time.Now(), loc)

	state, newly, err := s.streaks.RecordActivity(ctx, userID, today)
	if err != nil {
		return nil, nil, err
	}

	for _, threshold := range newly {
		body := fmt.Sprintf("You reached a %d-day study streak", threshold)
		if err := s.notifier.Deliver(ctx, userID, "Trophy earned", body, "trophies"); err != nil {
			log.Printf("streak: failed to deliver trophy notification for %s: %v", userID, err)
		}
	}
	return state, newly, nil
}

func (s *StreakService) Get(ctx context.Context, userID uuid.UUID) (*models.StreakState, error) {
	return s.streaks.Get(ctx, userID)
}

// Trophies projects the fixed thresholds against the user's current streak
// and recorded award times.
func (s *StreakService) Trophies(ctx context.Context, userID uuid.UUID) ([]models.Trophy, error) {
	state, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	awards, err := s.streaks.ListAwards(ctx, userID)
	if err != nil {
		return nil, err
	}

	trophies := make([]models.Trophy, 0, len(streak.Thresholds))
	for _, threshold := range streak.Thresholds {
		t := models.Trophy{
			Threshold: threshold,
			Achieved:  state.CurrentStreak >= threshold,
		}
		if at, ok := awards[threshold]; ok {
			awardedAt := at
			t.AwardedAt = &awardedAt
		}
		trophies = append(trophies, t)
	}
	return trophies, nil
}
