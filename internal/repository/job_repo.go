package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Upsert registers a job, replacing any prior job under the same key in one
// statement (last writer wins). Replacing also resurrects a fired or
// cancelled key back to scheduled.
func (r *JobRepo) Upsert(ctx context.Context, j *models.ScheduledJob) error {
	if len(j.PayloadJSON) == 0 {
		j.PayloadJSON = []byte("{}")
	}
	j.Status = models.JobScheduled

	query := `INSERT INTO scheduled_jobs (key, kind, fire_at, time_of_day, payload_json, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			kind = EXCLUDED.kind,
			fire_at = EXCLUDED.fire_at,
			time_of_day = EXCLUDED.time_of_day,
			payload_json = EXCLUDED.payload_json,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		j.Key, j.Kind, j.FireAt, j.TimeOfDay, j.PayloadJSON, j.Status,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
}

// Cancel marks a scheduled job cancelled. Cancelling a missing, fired, or
// already-cancelled key is a no-op, not an error.
func (r *JobRepo) Cancel(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE scheduled_jobs SET status = $2, updated_at = NOW() WHERE key = $1 AND status = $3`,
		key, models.JobCancelled, models.JobScheduled,
	)
	return err
}

// Claim transitions a one-shot job from scheduled to fired. The conditional
// update is what makes firing exactly-once: only one of a concurrent
// fire/cancel pair can flip the row, and fired wins if it gets there first.
func (r *JobRepo) Claim(ctx context.Context, key string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_jobs SET status = $2, updated_at = NOW() WHERE key = $1 AND status = $3`,
		key, models.JobFired, models.JobScheduled,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetScheduled loads the job under key while it is still scheduled. A
// missing, fired, or cancelled key returns nil without error; the daily fire
// path uses this to decide whether an in-flight occurrence may dispatch and
// re-arm.
func (r *JobRepo) GetScheduled(ctx context.Context, key string) (*models.ScheduledJob, error) {
	j := &models.ScheduledJob{}
	err := r.pool.QueryRow(ctx,
		`SELECT key, kind, fire_at, time_of_day, payload_json, status, created_at, updated_at
		 FROM scheduled_jobs WHERE key = $1 AND status = $2`,
		key, models.JobScheduled,
	).Scan(&j.Key, &j.Kind, &j.FireAt, &j.TimeOfDay, &j.PayloadJSON, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ListScheduled returns every job the scheduler must re-arm after a restart.
func (r *JobRepo) ListScheduled(ctx context.Context) ([]*models.ScheduledJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, kind, fire_at, time_of_day, payload_json, status, created_at, updated_at
		 FROM scheduled_jobs WHERE status = $1`,
		models.JobScheduled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ScheduledJob
	for rows.Next() {
		j := &models.ScheduledJob{}
		err := rows.Scan(&j.Key, &j.Kind, &j.FireAt, &j.TimeOfDay, &j.PayloadJSON, &j.Status, &j.CreatedAt, &j.UpdatedAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
