package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
)

// dueScanPageSize bounds how many due notes one scan touches when updating
// reminder-fired flags.
const dueScanPageSize = 200

// DueNoteStore is the slice of note persistence the due scanner needs.
type DueNoteStore interface {
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.LearningNote, error)
	UpdateReminderFired(ctx context.Context, id uuid.UUID, fired []bool) error
}

// DueScanner runs once a day per user (driven by the durable scheduler) and
// emits a single aggregated notification for everything due, never one per
// note. Re-running a scan is harmless: it only reports what is due at that
// moment.
type DueScanner struct {
	notes    DueNoteStore
	notifier Notifier
	now      func() time.Time
}

func NewDueScanner(notes DueNoteStore, notifier Notifier) *DueScanner {
	return &DueScanner{notes: notes, notifier: notifier, now: time.Now}
}

// Run never returns an error: store failures are logged and retried by the
// next natural daily occurrence, which is already a conservative cadence.
func (d *DueScanner) Run(ctx context.Context, userID uuid.UUID) {
	now := d.now()

	count, err := d.notes.CountDue(ctx, userID, now)
	if err != nil {
		log.Printf("due scan: failed to count due notes for %s: %v", userID, err)
		return
	}

	if count > 0 {
		if err := d.notifier.Deliver(ctx, userID, "Time to review", dueBody(count), "notes-due"); err != nil {
			log.Printf("due scan: failed to deliver notification for %s: %v", userID, err)
		}
	}

	d.markElapsedStages(ctx, userID, now)
}

// markElapsedStages flips the fired flag on every reminder stage whose time
// has passed. A flag is only ever set once its stage is in the past.
func (d *DueScanner) markElapsedStages(ctx context.Context, userID uuid.UUID, now time.Time) {
	notes, err := d.notes.ListDue(ctx, userID, now, dueScanPageSize)
	if err != nil {
		log.Printf("due scan: failed to list due notes for %s: %v", userID, err)
		return
	}

	for _, note := range notes {
		changed := false
		fired := make([]bool, len(note.ReminderFired))
		copy(fired, note.ReminderFired)

		for i, stage := range note.ReminderStages {
			if i >= len(fired) {
				break
			}
			if !fired[i] && !stage.After(now) {
				fired[i] = true
				changed = true
			}
		}

		if !changed {
			continue
		}
		if err := d.notes.UpdateReminderFired(ctx, note.ID, fired); err != nil {
			log.Printf("due scan: failed to update reminder flags for note %s: %v", note.ID, err)
		}
	}
}

func dueBody(count int) string {
	if count == 1 {
		return "You have 1 note ready to review"
	}
	return fmt.Sprintf("You have %d notes ready to review", count)
}
