package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
)

type fakeDueStore struct {
	count    int
	countErr error
	notes    []*models.LearningNote
	updated  map[uuid.UUID][]bool
}

func (f *fakeDueStore) CountDue(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeDueStore) ListDue(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]*models.LearningNote, error) {
	return f.notes, nil
}

func (f *fakeDueStore) UpdateReminderFired(_ context.Context, id uuid.UUID, fired []bool) error {
	if f.updated == nil {
		f.updated = map[uuid.UUID][]bool{}
	}
	f.updated[id] = fired
	return nil
}

type fakeNotifier struct {
	delivered []models.NotificationEvent
	err       error
}

func (f *fakeNotifier) Deliver(_ context.Context, _ uuid.UUID, title, body, groupKey string) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, models.NotificationEvent{Title: title, Body: body, GroupKey: groupKey})
	return nil
}

func TestDueScanner_AggregatesIntoOneNotification(t *testing.T) {
	store := &fakeDueStore{count: 7}
	notifier := &fakeNotifier{}
	scanner := NewDueScanner(store, notifier)

	scanner.Run(context.Background(), uuid.New())

	if len(notifier.delivered) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.delivered))
	}
	if notifier.delivered[0].Body != "You have 7 notes ready to review" {
		t.Errorf("unexpected body %q", notifier.delivered[0].Body)
	}
	if notifier.delivered[0].GroupKey != "notes-due" {
		t.Errorf("unexpected group key %q", notifier.delivered[0].GroupKey)
	}
}

func TestDueScanner_NothingDueStaysSilent(t *testing.T) {
	notifier := &fakeNotifier{}
	scanner := NewDueScanner(&fakeDueStore{count: 0}, notifier)

	scanner.Run(context.Background(), uuid.New())

	if len(notifier.delivered) != 0 {
		t.Errorf("expected no notification when nothing is due, got %d", len(notifier.delivered))
	}
}

func TestDueScanner_StoreFailureIsSwallowed(t *testing.T) {
	notifier := &fakeNotifier{}
	scanner := NewDueScanner(&fakeDueStore{countErr: errors.New("connection reset")}, notifier)

	// Must not panic or notify; the next daily occurrence retries.
	scanner.Run(context.Background(), uuid.New())

	if len(notifier.delivered) != 0 {
		t.Errorf("expected no notification on store failure, got %d", len(notifier.delivered))
	}
}

func TestDueScanner_MarksElapsedStages(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	noteID := uuid.New()
	store := &fakeDueStore{
		count: 1,
		notes: []*models.LearningNote{{
			ID: noteID,
			ReminderStages: []time.Time{
				now.AddDate(0, 0, -3),
				now.Add(-time.Hour),
				now.AddDate(0, 0, 4),
			},
			ReminderFired: []bool{true, false, false},
		}},
	}

	scanner := NewDueScanner(store, &fakeNotifier{})
	scanner.now = func() time.Time { return now }

	scanner.Run(context.Background(), uuid.New())

	fired, ok := store.updated[noteID]
	if !ok {
		t.Fatal("expected reminder flags to be updated")
	}
	want := []bool{true, true, false}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("stage %d: expected fired=%v, got %v", i, want[i], fired[i])
		}
	}
}

func TestDueBody_Singular(t *testing.T) {
	if got := dueBody(1); got != "You have 1 note ready to review" {
		t.Errorf("unexpected singular body %q", got)
	}
}
