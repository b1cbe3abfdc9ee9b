package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/review"
)

type ShareService struct {
	shares   *repository.ShareRepo
	notes    *repository.NoteRepo
	noteSvc  *NoteService
	notifier Notifier
}

func NewShareService(shares *repository.ShareRepo, notes *repository.NoteRepo, noteSvc *NoteService, notifier Notifier) *ShareService {
	return &ShareService{shares: shares, notes: notes, noteSvc: noteSvc, notifier: notifier}
}

// Send snapshots the sender's note and dual-writes the request to both
// parties. The repo's transaction guarantees no partial share ever counts as
// sent; on error the caller simply retries.
func (s *ShareService) Send(ctx context.Context, senderID uuid.UUID, req models.SendShareRequest) (*models.NoteShare, error) {
	fields := map[string]string{}
	if req.RecipientID == uuid.Nil {
		fields["recipient_id"] = "Recipient is required"
	}
	if req.RecipientID == senderID {
		fields["recipient_id"] = "Cannot share a note with yourself"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	note, err := s.notes.GetByID(ctx, req.NoteID, senderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Note not found"}
		}
		return nil, err
	}

	share := &models.NoteShare{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Category:    note.Category,
		Text:        note.Text,
		Message:     req.Message,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}

	if err := s.notifier.Deliver(ctx, share.RecipientID, "Note shared with you", shareBody(share), "shares"); err != nil {
		log.Printf("share: failed to notify recipient %s: %v", share.RecipientID, err)
	}
	return share, nil
}

func (s *ShareService) Inbox(ctx context.Context, userID uuid.UUID) ([]*models.NoteShare, error) {
	return s.shares.ListInbox(ctx, userID)
}

func (s *ShareService) Outbox(ctx context.Context, userID uuid.UUID) ([]*models.NoteShare, error) {
	return s.shares.ListOutbox(ctx, userID)
}

// Accept terminates the request and clones the snapshot into the recipient's
// collection. The recipient picks the tier and the first review date; the
// clone's reminder stages are seeded from that anchor, not from today, and
// its review count starts over at zero. The sender's note is untouched.
//
// The status flip and the clone insert are separate writes: a crash between
// them leaves an accepted share without its note, which the caller sees as a
// failure and a later reconciliation pass would have to repair.
func (s *ShareService) Accept(ctx context.Context, recipientID, shareID uuid.UUID, req models.AcceptShareRequest) (*models.LearningNote, error) {
	fields := map[string]string{}
	if !req.Importance.Valid() {
		fields["importance"] = "Importance must be low, medium, or high"
	}
	if req.FirstReviewAt.IsZero() {
		fields["first_review_at"] = "First review date is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	share, err := s.getPending(ctx, recipientID, shareID)
	if err != nil {
		return nil, err
	}

	stages, err := review.ReminderStages(req.Importance, req.FirstReviewAt)
	if err != nil {
		return nil, err
	}

	if err := s.shares.Terminate(ctx, shareID, models.ShareAccepted, time.Now()); err != nil {
		if errors.Is(err, repository.ErrShareTerminated) {
			return nil, &ConflictError{Message: "Share request already handled"}
		}
		return nil, err
	}

	clone := cloneNote(share, recipientID, req.Importance, req.FirstReviewAt, stages)
	if err := s.notes.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("share accepted but note creation failed: %w", err)
	}

	if err := s.noteSvc.EnsureDueScan(ctx, recipientID); err != nil {
		log.Printf("share: failed to schedule due scan for %s: %v", recipientID, err)
	}
	return clone, nil
}

// Ignore terminates the request without creating anything.
func (s *ShareService) Ignore(ctx context.Context, recipientID, shareID uuid.UUID) error {
	if _, err := s.getPending(ctx, recipientID, shareID); err != nil {
		return err
	}

	if err := s.shares.Terminate(ctx, shareID, models.ShareIgnored, time.Now()); err != nil {
		if errors.Is(err, repository.ErrShareTerminated) {
			return &ConflictError{Message: "Share request already handled"}
		}
		return err
	}
	return nil
}

func (s *ShareService) getPending(ctx context.Context, recipientID, shareID uuid.UUID) (*models.NoteShare, error) {
	share, err := s.shares.GetInbox(ctx, shareID, recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Share request not found"}
		}
		return nil, err
	}
	if share.Status != models.SharePending {
		return nil, &ConflictError{Message: "Share request already handled"}
	}
	return share, nil
}

// cloneNote builds the recipient's fresh copy of a shared note.
func cloneNote(share *models.NoteShare, recipientID uuid.UUID, tier models.ImportanceTier, firstReviewAt time.Time, stages []time.Time) *models.LearningNote {
	return &models.LearningNote{
		UserID:         recipientID,
		Category:       share.Category,
		Text:           share.Text,
		Importance:     tier,
		ReviewCount:    0,
		NextReviewAt:   firstReviewAt,
		ReminderStages: stages,
		ReminderFired:  make([]bool, len(stages)),
	}
}

func shareBody(share *models.NoteShare) string {
	if share.Message != nil && *share.Message != "" {
		return *share.Message
	}
	if share.Category != "" {
		return fmt.Sprintf("A %s note was shared with you", share.Category)
	}
	return "A note was shared with you"
}
