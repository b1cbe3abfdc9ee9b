package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

// ErrShareTerminated is returned when a share has already been accepted or
// ignored; the Pending -> Accepted/Ignored transitions are terminal.
var ErrShareTerminated = fmt.Errorf("share request already accepted or ignored")

const (
	directionInbox  = "inbox"
	directionOutbox = "outbox"
)

type ShareRepo struct {
	pool *pgxpool.Pool
}

func NewShareRepo(pool *pgxpool.Pool) *ShareRepo {
	return &ShareRepo{pool: pool}
}

const shareColumns = `id, sender_id, recipient_id, category, body, message, status, sent_at, responded_at`

// Create dual-writes the share to the sender's outbox and the recipient's
// inbox inside one transaction: either both parties see the share or neither
// does. A failed send leaves no partial state.
func (r *ShareRepo) Create(ctx context.Context, s *models.NoteShare) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Status = models.SharePending

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `INSERT INTO note_shares (id, direction, party_id, sender_id, recipient_id, category, body, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	err = tx.QueryRow(ctx, insert+` RETURNING sent_at`,
		s.ID, directionOutbox, s.SenderID, s.SenderID, s.RecipientID, s.Category, s.Text, s.Message, s.Status,
	).Scan(&s.SentAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, insert,
		s.ID, directionInbox, s.RecipientID, s.SenderID, s.RecipientID, s.Category, s.Text, s.Message, s.Status,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetInbox loads the recipient's copy of a share.
func (r *ShareRepo) GetInbox(ctx context.Context, id, recipientID uuid.UUID) (*models.NoteShare, error) {
	s := &models.NoteShare{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+shareColumns+` FROM note_shares WHERE id = $1 AND direction = $2 AND party_id = $3`,
		id, directionInbox, recipientID,
	).Scan(&s.ID, &s.SenderID, &s.RecipientID, &s.Category, &s.Text, &s.Message, &s.Status, &s.SentAt, &s.RespondedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ShareRepo) ListInbox(ctx context.Context, userID uuid.UUID) ([]*models.NoteShare, error) {
	return r.list(ctx, userID, directionInbox)
}

func (r *ShareRepo) ListOutbox(ctx context.Context, userID uuid.UUID) ([]*models.NoteShare, error) {
	return r.list(ctx, userID, directionOutbox)
}

func (r *ShareRepo) list(ctx context.Context, userID uuid.UUID, direction string) ([]*models.NoteShare, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shareColumns+` FROM note_shares WHERE party_id = $1 AND direction = $2 ORDER BY sent_at DESC`,
		userID, direction,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*models.NoteShare
	for rows.Next() {
		s := &models.NoteShare{}
		err := rows.Scan(&s.ID, &s.SenderID, &s.RecipientID, &s.Category, &s.Text, &s.Message, &s.Status, &s.SentAt, &s.RespondedAt)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

// Terminate moves a pending share to a terminal status, updating both the
// inbox and outbox rows in one transaction. Returns ErrShareTerminated if the
// share is not pending anymore (including a concurrent accept/ignore).
func (r *ShareRepo) Terminate(ctx context.Context, id uuid.UUID, to models.ShareStatus, respondedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE note_shares SET status = $2, responded_at = $3 WHERE id = $1 AND status = $4`,
		id, to, respondedAt, models.SharePending,
	)
	if err != nil {
		return err
	}

	// Both copies must move together; anything else means the share was
	// already terminated (0) or a dual-write was left half-done (1).
	if tag.RowsAffected() != 2 {
		return ErrShareTerminated
	}

	return tx.Commit(ctx)
}
