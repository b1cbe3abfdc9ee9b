package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `INSERT INTO tasks (id, user_id, title, due_at) VALUES ($1, $2, $3, $4) RETURNING created_at`
	return r.pool.QueryRow(ctx, query, t.ID, t.UserID, t.Title, t.DueAt).Scan(&t.CreatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	t := &models.Task{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, due_at, completed, created_at FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.DueAt, &t.Completed, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, due_at, completed, created_at FROM tasks
		 WHERE user_id = $1 ORDER BY completed ASC, due_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.DueAt, &t.Completed, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetCompleted flips the completion flag and returns the updated task.
func (r *TaskRepo) SetCompleted(ctx context.Context, id, userID uuid.UUID, completed bool) (*models.Task, error) {
	t := &models.Task{}
	err := r.pool.QueryRow(ctx,
		`UPDATE tasks SET completed = $3 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, due_at, completed, created_at`,
		id, userID, completed,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.DueAt, &t.Completed, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
