package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/streak"
)

type StreakRepo struct {
	pool *pgxpool.Pool
}

func NewStreakRepo(pool *pgxpool.Pool) *StreakRepo {
	return &StreakRepo{pool: pool}
}

func (r *StreakRepo) Get(ctx context.Context, userID uuid.UUID) (*models.StreakState, error) {
	s := &models.StreakState{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT current_streak, longest_streak, last_active_day, updated_at FROM streaks WHERE user_id = $1`,
		userID,
	).Scan(&s.CurrentStreak, &s.LongestStreak, &s.LastActiveDay, &s.UpdatedAt)
	if err != nil {
		// No row yet means no sessions recorded: an empty streak, not an error.
		if errors.Is(err, pgx.ErrNoRows) {
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// RecordActivity applies one completed study session for the given local
// calendar day and evaluates trophies against the updated streak, all inside
// a single transaction with the user's row locked. Trophy inserts are
// conditional (unique key), so a retried write can never award twice; an
// insert that conflicts is dropped from the newly-awarded result.
func (r *StreakRepo) RecordActivity(ctx context.Context, userID uuid.UUID, today time.Time) (*models.StreakState, []int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO streaks (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, nil, err
	}

	s := &models.StreakState{UserID: userID}
	err = tx.QueryRow(ctx,
		`SELECT current_streak, longest_streak, last_active_day FROM streaks WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&s.CurrentStreak, &s.LongestStreak, &s.LastActiveDay)
	if err != nil {
		return nil, nil, err
	}

	s.CurrentStreak, s.LongestStreak = streak.Update(s.LastActiveDay, today, s.CurrentStreak, s.LongestStreak)
	s.LastActiveDay = &today

	err = tx.QueryRow(ctx,
		`UPDATE streaks SET current_streak = $2, longest_streak = $3, last_active_day = $4, updated_at = NOW()
		 WHERE user_id = $1 RETURNING updated_at`,
		userID, s.CurrentStreak, s.LongestStreak, today,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	awarded := map[int]bool{}
	rows, err := tx.Query(ctx, `SELECT threshold FROM trophy_awards WHERE user_id = $1`, userID)
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var threshold int
		if err := rows.Scan(&threshold); err != nil {
			rows.Close()
			return nil, nil, err
		}
		awarded[threshold] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var newly []int
	for _, threshold := range streak.NewlyEarned(s.CurrentStreak, awarded) {
		tag, err := tx.Exec(ctx,
			`INSERT INTO trophy_awards (user_id, threshold) VALUES ($1, $2) ON CONFLICT (user_id, threshold) DO NOTHING`,
			userID, threshold,
		)
		if err != nil {
			return nil, nil, err
		}
		if tag.RowsAffected() == 1 {
			newly = append(newly, threshold)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return s, newly, nil
}

func (r *StreakRepo) ListAwards(ctx context.Context, userID uuid.UUID) (map[int]time.Time, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT threshold, awarded_at FROM trophy_awards WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := map[int]time.Time{}
	for rows.Next() {
		var threshold int
		var at time.Time
		if err := rows.Scan(&threshold, &at); err != nil {
			return nil, err
		}
		awards[threshold] = at
	}
	return awards, rows.Err()
}
