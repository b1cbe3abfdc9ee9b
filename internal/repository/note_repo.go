package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/review"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

const noteColumns = `id, user_id, category, body, importance, review_count, next_review_at, reminder_stages, reminder_fired, created_at`

func (r *NoteRepo) Create(ctx context.Context, n *models.LearningNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.ReminderStages == nil {
		n.ReminderStages = []time.Time{}
	}
	if n.ReminderFired == nil {
		n.ReminderFired = make([]bool, len(n.ReminderStages))
	}

	query := `INSERT INTO learning_notes (id, user_id, category, body, importance, review_count, next_review_at, reminder_stages, reminder_fired)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		n.ID, n.UserID, n.Category, n.Text, n.Importance, n.ReviewCount, n.NextReviewAt, n.ReminderStages, n.ReminderFired,
	).Scan(&n.CreatedAt)
}

func (r *NoteRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.LearningNote, error) {
	n := &models.LearningNote{}
	query := `SELECT ` + noteColumns + ` FROM learning_notes WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&n.ID, &n.UserID, &n.Category, &n.Text, &n.Importance, &n.ReviewCount,
		&n.NextReviewAt, &n.ReminderStages, &n.ReminderFired, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LearningNote, error) {
	query := `SELECT ` + noteColumns + ` FROM learning_notes WHERE user_id = $1 ORDER BY next_review_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.LearningNote
	for rows.Next() {
		n := &models.LearningNote{}
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Category, &n.Text, &n.Importance, &n.ReviewCount,
			&n.NextReviewAt, &n.ReminderStages, &n.ReminderFired, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkReviewed increments the review counter and recomputes next_review_at in
// one transaction with the row locked, so two devices reviewing the same note
// concurrently serialize instead of losing an update.
func (r *NoteRepo) MarkReviewed(ctx context.Context, id, userID uuid.UUID, now time.Time) (*models.LearningNote, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var tier models.ImportanceTier
	var count int
	err = tx.QueryRow(ctx,
		`SELECT importance, review_count FROM learning_notes WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	).Scan(&tier, &count)
	if err != nil {
		return nil, err
	}

	next, err := review.ComputeNextReview(tier, count+1, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next review: %w", err)
	}

	n := &models.LearningNote{}
	err = tx.QueryRow(ctx,
		`UPDATE learning_notes SET review_count = review_count + 1, next_review_at = $3
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+noteColumns,
		id, userID, next,
	).Scan(
		&n.ID, &n.UserID, &n.Category, &n.Text, &n.Importance, &n.ReviewCount,
		&n.NextReviewAt, &n.ReminderStages, &n.ReminderFired, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM learning_notes WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

func (r *NoteRepo) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM learning_notes WHERE user_id = $1 AND next_review_at <= $2`,
		userID, now,
	).Scan(&count)
	return count, err
}

func (r *NoteRepo) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.LearningNote, error) {
	query := `SELECT ` + noteColumns + ` FROM learning_notes
		WHERE user_id = $1 AND next_review_at <= $2 ORDER BY next_review_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.LearningNote
	for rows.Next() {
		n := &models.LearningNote{}
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Category, &n.Text, &n.Importance, &n.ReviewCount,
			&n.NextReviewAt, &n.ReminderStages, &n.ReminderFired, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// UpdateReminderFired persists the fired flags for a note's reminder stages.
func (r *NoteRepo) UpdateReminderFired(ctx context.Context, id uuid.UUID, fired []bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE learning_notes SET reminder_fired = $2 WHERE id = $1`,
		id, fired,
	)
	return err
}
