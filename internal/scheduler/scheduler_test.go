package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"studyhub-backend/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*models.ScheduledJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*models.ScheduledJob)}
}

func (m *memStore) Upsert(_ context.Context, job *models.ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = models.JobScheduled
	copied := *job
	m.jobs[job.Key] = &copied
	return nil
}

func (m *memStore) Cancel(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[key]; ok && job.Status == models.JobScheduled {
		job.Status = models.JobCancelled
	}
	return nil
}

func (m *memStore) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[key]
	if !ok || job.Status != models.JobScheduled {
		return false, nil
	}
	job.Status = models.JobFired
	return true, nil
}

func (m *memStore) GetScheduled(_ context.Context, key string) (*models.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[key]
	if !ok || job.Status != models.JobScheduled {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *memStore) ListScheduled(_ context.Context) ([]*models.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*models.ScheduledJob
	for _, job := range m.jobs {
		if job.Status == models.JobScheduled {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}
	return jobs, nil
}

func (m *memStore) get(key string) *models.ScheduledJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[key]
}

type chanDispatcher struct {
	fired chan models.FiredJob
}

func newChanDispatcher() *chanDispatcher {
	return &chanDispatcher{fired: make(chan models.FiredJob, 16)}
}

func (d *chanDispatcher) Dispatch(_ context.Context, fired models.FiredJob) error {
	d.fired <- fired
	return nil
}

func (d *chanDispatcher) waitOne(t *testing.T) models.FiredJob {
	t.Helper()
	select {
	case fired := <-d.fired:
		return fired
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dispatched job")
		return models.FiredJob{}
	}
}

func (d *chanDispatcher) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case fired := <-d.fired:
		t.Fatalf("unexpected dispatch of %s", fired.Key)
	case <-time.After(within):
	}
}

func TestRegisterOneShot_SameKeyReplaces(t *testing.T) {
	store := newMemStore()
	s := New(store, newChanDispatcher(), time.UTC)
	defer s.Stop()

	ctx := context.Background()
	first := time.Now().Add(1 * time.Hour)
	second := time.Now().Add(2 * time.Hour)

	if err := s.RegisterOneShot(ctx, "task:abc", first, nil); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := s.RegisterOneShot(ctx, "task:abc", second, nil); err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	jobs, _ := store.ListScheduled(ctx)
	if len(jobs) != 1 {
		t.Fatalf("expected exactly one live job, got %d", len(jobs))
	}
	if !jobs[0].FireAt.Equal(second) {
		t.Errorf("expected the second registration's fire time to win, got %v", jobs[0].FireAt)
	}

	s.mu.Lock()
	timerCount := len(s.timers)
	s.mu.Unlock()
	if timerCount != 1 {
		t.Errorf("expected one armed timer, got %d", timerCount)
	}
}

func TestCancel_UnknownKeyIsNoOp(t *testing.T) {
	s := New(newMemStore(), newChanDispatcher(), time.UTC)
	defer s.Stop()

	if err := s.Cancel(context.Background(), "task:never-registered"); err != nil {
		t.Errorf("cancelling an unknown key should succeed, got %v", err)
	}
}

func TestStart_CatchesUpElapsedOneShot(t *testing.T) {
	store := newMemStore()
	dispatcher := newChanDispatcher()
	s := New(store, dispatcher, time.UTC)
	defer s.Stop()

	ctx := context.Background()
	past := time.Now().Add(-1 * time.Hour)
	payload, _ := json.Marshal(models.ReminderPayload{Type: models.ReminderTaskDue})
	store.Upsert(ctx, &models.ScheduledJob{
		Key:         "task:missed",
		Kind:        models.JobOneShot,
		FireAt:      &past,
		PayloadJSON: payload,
	})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	fired := dispatcher.waitOne(t)
	if fired.Key != "task:missed" {
		t.Errorf("expected task:missed to fire, got %s", fired.Key)
	}

	// Once, not twice.
	dispatcher.expectNone(t, 200*time.Millisecond)

	if status := store.get("task:missed").Status; status != models.JobFired {
		t.Errorf("expected job status fired, got %s", status)
	}
}

func TestRegisterOneShot_PastFireTimeFiresImmediately(t *testing.T) {
	store := newMemStore()
	dispatcher := newChanDispatcher()
	s := New(store, dispatcher, time.UTC)
	defer s.Stop()

	err := s.RegisterOneShot(context.Background(), "task:overdue", time.Now().Add(-time.Minute), nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	fired := dispatcher.waitOne(t)
	if fired.Key != "task:overdue" {
		t.Errorf("expected task:overdue, got %s", fired.Key)
	}
}

func TestCancelledJobDoesNotDispatch(t *testing.T) {
	store := newMemStore()
	dispatcher := newChanDispatcher()
	s := New(store, dispatcher, time.UTC)
	defer s.Stop()

	ctx := context.Background()
	if err := s.RegisterOneShot(ctx, "task:soon", time.Now().Add(50*time.Millisecond), nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Cancel(ctx, "task:soon"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	dispatcher.expectNone(t, 300*time.Millisecond)

	if status := store.get("task:soon").Status; status != models.JobCancelled {
		t.Errorf("expected job status cancelled, got %s", status)
	}
}

func TestFireDaily_CancelledJobNeitherDispatchesNorRearms(t *testing.T) {
	store := newMemStore()
	dispatcher := newChanDispatcher()
	s := New(store, dispatcher, time.UTC)
	defer s.Stop()

	ctx := context.Background()
	payload, _ := json.Marshal(models.ReminderPayload{Type: models.ReminderNotesDueScan})
	if err := s.RegisterDaily(ctx, "notes-due-scan:u1", "09:30", payload); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Cancel(ctx, "notes-due-scan:u1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// An occurrence already in flight when the cancel landed.
	s.fireDaily("notes-due-scan:u1", "09:30", time.Now(), payload)

	dispatcher.expectNone(t, 200*time.Millisecond)

	s.mu.Lock()
	_, armed := s.timers["notes-due-scan:u1"]
	s.mu.Unlock()
	if armed {
		t.Error("cancelled daily job must not re-arm its timer")
	}
}

func TestFireDaily_LiveJobDispatchesAndRearms(t *testing.T) {
	store := newMemStore()
	dispatcher := newChanDispatcher()
	s := New(store, dispatcher, time.UTC)
	defer s.Stop()

	ctx := context.Background()
	payload, _ := json.Marshal(models.ReminderPayload{Type: models.ReminderNotesDueScan})
	if err := s.RegisterDaily(ctx, "notes-due-scan:u1", "09:30", payload); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	s.fireDaily("notes-due-scan:u1", "09:30", time.Now(), payload)

	fired := dispatcher.waitOne(t)
	if fired.Key != "notes-due-scan:u1" {
		t.Errorf("expected notes-due-scan:u1, got %s", fired.Key)
	}
	if fired.Kind != models.JobDaily {
		t.Errorf("expected daily kind, got %s", fired.Kind)
	}

	s.mu.Lock()
	_, armed := s.timers["notes-due-scan:u1"]
	s.mu.Unlock()
	if !armed {
		t.Error("live daily job must re-arm for the next occurrence")
	}

	// The store row stays scheduled so a restart re-arms it.
	if status := store.get("notes-due-scan:u1").Status; status != models.JobScheduled {
		t.Errorf("expected job status scheduled, got %s", status)
	}
}

func TestNextOccurrence_StrictlyAfterNow(t *testing.T) {
	s := New(newMemStore(), newChanDispatcher(), time.UTC)
	defer s.Stop()

	// Pin the clock to exactly 09:30: the next 09:30 must be tomorrow, so a
	// restart landing on the occurrence itself skips it instead of
	// double-firing.
	s.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	}

	next, err := s.nextOccurrence("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	next, err = s.nextOccurrence("10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestRegisterDaily_RejectsBadTimeOfDay(t *testing.T) {
	s := New(newMemStore(), newChanDispatcher(), time.UTC)
	defer s.Stop()

	for _, at := range []string{"", "morning", "25:00", "10:75"} {
		if err := s.RegisterDaily(context.Background(), "notes-due-scan:u1", at, nil); err == nil {
			t.Errorf("expected error for time of day %q", at)
		}
	}
}
