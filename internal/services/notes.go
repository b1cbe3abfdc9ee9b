package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/review"
	"studyhub-backend/internal/scheduler"
)

type NoteService struct {
	notes     *repository.NoteRepo
	sched     *scheduler.Scheduler
	dueScanAt string
}

func NewNoteService(notes *repository.NoteRepo, sched *scheduler.Scheduler, dueScanAt string) *NoteService {
	return &NoteService{notes: notes, sched: sched, dueScanAt: dueScanAt}
}

func (s *NoteService) Create(ctx context.Context, userID uuid.UUID, req models.CreateNoteRequest) (*models.LearningNote, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.Text) == "" {
		fields["text"] = "Text is required"
	}
	if !req.Importance.Valid() {
		fields["importance"] = "Importance must be low, medium, or high"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	now := time.Now()
	next, err := review.ComputeNextReview(req.Importance, 0, now)
	if err != nil {
		return nil, err
	}
	stages, err := review.ReminderStages(req.Importance, now)
	if err != nil {
		return nil, err
	}

	note := &models.LearningNote{
		UserID:         userID,
		Category:       strings.TrimSpace(req.Category),
		Text:           req.Text,
		Importance:     req.Importance,
		ReviewCount:    0,
		NextReviewAt:   next,
		ReminderStages: stages,
		ReminderFired:  make([]bool, len(stages)),
	}

	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	if err := s.EnsureDueScan(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to schedule due scan: %w", err)
	}
	return note, nil
}

// EnsureDueScan registers the user's daily due-item scan. Registration is
// keyed, so calling this on every note mutation just replaces the existing
// job with identical parameters. A nil user (signed out) is a silent no-op.
func (s *NoteService) EnsureDueScan(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}

	payload, err := json.Marshal(models.ReminderPayload{
		Type:   models.ReminderNotesDueScan,
		UserID: userID,
	})
	if err != nil {
		return err
	}
	return s.sched.RegisterDaily(ctx, scheduler.DueScanKey(userID), s.dueScanAt, payload)
}

func (s *NoteService) List(ctx context.Context, userID uuid.UUID) ([]*models.LearningNote, error) {
	return s.notes.ListByUser(ctx, userID)
}

func (s *NoteService) Get(ctx context.Context, userID, noteID uuid.UUID) (*models.LearningNote, error) {
	note, err := s.notes.GetByID(ctx, noteID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Note not found"}
		}
		return nil, err
	}
	return note, nil
}

// MarkReviewed records one completed review: the review counter and the next
// review instant move together in a single transactional update.
func (s *NoteService) MarkReviewed(ctx context.Context, userID, noteID uuid.UUID) (*models.LearningNote, error) {
	note, err := s.notes.MarkReviewed(ctx, noteID, userID, time.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Note not found"}
		}
		return nil, err
	}
	return note, nil
}

// Delete removes a note. Due notifications are aggregate per user, so there
// is no per-note job to cancel.
func (s *NoteService) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	return s.notes.Delete(ctx, noteID, userID)
}
