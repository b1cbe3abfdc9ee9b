// Package scheduler keeps a persistent, restart-safe registry of keyed
// reminder jobs and fires them onto a dispatch queue when their time arrives.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
)

// Store persists scheduled jobs. Registration must be last-writer-wins per
// key and Claim must be a conditional scheduled->fired transition so that a
// fire racing a cancel resolves to exactly one outcome.
type Store interface {
	Upsert(ctx context.Context, job *models.ScheduledJob) error
	Cancel(ctx context.Context, key string) error
	Claim(ctx context.Context, key string) (bool, error)
	// GetScheduled returns the job under key while it is still scheduled, or
	// nil when it is missing, fired, or cancelled.
	GetScheduled(ctx context.Context, key string) (*models.ScheduledJob, error)
	ListScheduled(ctx context.Context) ([]*models.ScheduledJob, error)
}

// Dispatcher hands a fired job off to whatever executes it. Dispatch must be
// cheap; the heavy work happens on the consuming side.
type Dispatcher interface {
	Dispatch(ctx context.Context, fired models.FiredJob) error
}

// Dedup keys for the two reminder families.

func TaskKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task:%s", taskID)
}

func DueScanKey(userID uuid.UUID) string {
	return fmt.Sprintf("notes-due-scan:%s", userID)
}

type Scheduler struct {
	store      Store
	dispatcher Dispatcher
	loc        *time.Location
	now        func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func New(store Store, dispatcher Dispatcher, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		loc:        loc,
		now:        time.Now,
		timers:     make(map[string]*time.Timer),
	}
}

// RegisterOneShot schedules a job to fire once at fireAt. The job is
// persisted before the in-memory timer is armed, so a crash in between leaves
// a scheduled row that Start picks up. Registering an existing key replaces
// the pending job.
func (s *Scheduler) RegisterOneShot(ctx context.Context, key string, fireAt time.Time, payload json.RawMessage) error {
	if key == "" {
		return fmt.Errorf("job key is required")
	}

	job := &models.ScheduledJob{
		Key:         key,
		Kind:        models.JobOneShot,
		FireAt:      &fireAt,
		PayloadJSON: payload,
	}
	if err := s.store.Upsert(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job %s: %w", key, err)
	}

	s.armOneShot(key, fireAt, payload)
	return nil
}

// RegisterDaily schedules a job to fire every day at timeOfDay ("HH:MM",
// scheduler-local time). Same replace-by-key and persist-first semantics as
// RegisterOneShot.
func (s *Scheduler) RegisterDaily(ctx context.Context, key, timeOfDay string, payload json.RawMessage) error {
	if key == "" {
		return fmt.Errorf("job key is required")
	}
	if _, _, err := parseTimeOfDay(timeOfDay); err != nil {
		return err
	}

	job := &models.ScheduledJob{
		Key:         key,
		Kind:        models.JobDaily,
		TimeOfDay:   timeOfDay,
		PayloadJSON: payload,
	}
	if err := s.store.Upsert(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job %s: %w", key, err)
	}

	s.armDaily(key, timeOfDay, payload)
	return nil
}

// Cancel stops a pending job. Cancelling a key with no live job is a no-op.
// A job that fires concurrently with its cancel still counts as fired; the
// handlers behind reminders are idempotent against one stray delivery.
func (s *Scheduler) Cancel(ctx context.Context, key string) error {
	s.mu.Lock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	return s.store.Cancel(ctx, key)
}

// Start re-arms every persisted job after a restart. One-shot jobs whose time
// elapsed while the process was down fire immediately (a missed task reminder
// is user-visible data loss); daily jobs arm at their next occurrence
// strictly after now, skipping missed days rather than backfilling them.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.store.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for _, job := range jobs {
		switch job.Kind {
		case models.JobOneShot:
			if job.FireAt == nil {
				log.Printf("scheduler: dropping one-shot job %s with no fire time", job.Key)
				continue
			}
			s.armOneShot(job.Key, *job.FireAt, job.PayloadJSON)
		case models.JobDaily:
			s.armDaily(job.Key, job.TimeOfDay, job.PayloadJSON)
		default:
			log.Printf("scheduler: unknown job kind %q for key %s", job.Kind, job.Key)
		}
	}

	log.Printf("scheduler: re-armed %d persisted jobs", len(jobs))
	return nil
}

// Stop halts all pending timers. Persisted rows are untouched; the next
// Start re-arms them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Scheduler) armOneShot(key string, fireAt time.Time, payload json.RawMessage) {
	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.arm(key, delay, func() {
		s.fireOneShot(key, fireAt, payload)
	})
}

func (s *Scheduler) armDaily(key, timeOfDay string, payload json.RawMessage) {
	next, err := s.nextOccurrence(timeOfDay)
	if err != nil {
		log.Printf("scheduler: cannot arm daily job %s: %v", key, err)
		return
	}

	s.arm(key, next.Sub(s.now()), func() {
		s.fireDaily(key, timeOfDay, next, payload)
	})
}

// arm replaces any pending timer under key. Timer callbacks run on their own
// goroutine, so firing never blocks registration or other timers.
func (s *Scheduler) arm(key string, delay time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, fire)
}

func (s *Scheduler) fireOneShot(key string, fireAt time.Time, payload json.RawMessage) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	ctx := context.Background()

	// Claiming the row decides the race against Cancel and against a second
	// process: whoever flips scheduled->fired dispatches, everyone else
	// drops out silently.
	claimed, err := s.store.Claim(ctx, key)
	if err != nil {
		log.Printf("scheduler: failed to claim job %s: %v", key, err)
		return
	}
	if !claimed {
		return
	}

	s.dispatch(ctx, models.FiredJob{
		Key:        key,
		Kind:       models.JobOneShot,
		Payload:    payload,
		FiredAt:    s.now(),
		Occurrence: fireAt.UTC().Format(time.RFC3339),
	})
}

func (s *Scheduler) fireDaily(key, timeOfDay string, occurrence time.Time, payload json.RawMessage) {
	ctx := context.Background()

	// The row is the authority on whether this occurrence still exists: a
	// cancel that landed while the fire was in flight must suppress both the
	// dispatch and the re-arm, or the cancelled job would keep firing daily
	// until a restart. A replacement registration keeps the row scheduled, so
	// the re-arm below picks up its current parameters instead of this
	// occurrence's stale ones.
	job, err := s.store.GetScheduled(ctx, key)
	if err != nil {
		// Can't tell; skip this occurrence but keep the loop alive.
		log.Printf("scheduler: failed to check daily job %s: %v", key, err)
		s.armDaily(key, timeOfDay, payload)
		return
	}
	if job == nil {
		return
	}

	s.dispatch(ctx, models.FiredJob{
		Key:        key,
		Kind:       models.JobDaily,
		Payload:    job.PayloadJSON,
		FiredAt:    s.now(),
		Occurrence: occurrence.UTC().Format(time.RFC3339),
	})

	// Periodic jobs stay scheduled in the store; only the timer re-arms.
	s.armDaily(key, job.TimeOfDay, job.PayloadJSON)
}

func (s *Scheduler) dispatch(ctx context.Context, fired models.FiredJob) {
	if err := s.dispatcher.Dispatch(ctx, fired); err != nil {
		// Dropped fires are recovered by the next natural occurrence (daily)
		// or by catch-up on restart (one-shot rows stay fired, so this loss
		// is logged loudly).
		log.Printf("scheduler: failed to dispatch job %s: %v", fired.Key, err)
	}
}

// nextOccurrence returns the next instant of timeOfDay strictly after now in
// the scheduler's location.
func (s *Scheduler) nextOccurrence(timeOfDay string) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	now := s.now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

func parseTimeOfDay(at string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(at, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", at, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time of day %q", at)
	}
	return hour, minute, nil
}
