package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/scheduler"
	"studyhub-backend/internal/services"
)

// maxReminderAttempts bounds the retry loop for a failing reminder handler.
// One-shot rows are already fired by the time the envelope reaches a worker,
// so a dropped envelope is a lost reminder; retries are the recovery path.
const maxReminderAttempts = 3

// Pool consumes fired reminder jobs off the dispatch queue so that executing
// a reminder never runs on the scheduler's timer goroutines.
type Pool struct {
	redis       *redis.Client
	tasks       *services.TaskService
	scans       *services.DueScanner
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, tasks *services.TaskService, scans *services.DueScanner, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		tasks:       tasks,
		scans:       scans,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, scheduler.QueueReminderDispatch).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var fired models.FiredJob
		if err := json.Unmarshal([]byte(result[1]), &fired); err != nil {
			log.Printf("Worker %d: failed to parse fired job: %v", id, err)
			continue
		}

		// One handler run per occurrence: the lock keys on job key plus the
		// occurrence timestamp, so a daily job still fires again tomorrow.
		lockKey := fmt.Sprintf("reminder_lock:%s:%s", fired.Key, fired.Occurrence)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this occurrence
		}

		log.Printf("Worker %d: handling reminder %s (kind: %s)", id, fired.Key, fired.Kind)

		if err := p.handle(ctx, &fired); err != nil {
			p.handleFailure(ctx, &fired, err)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// handleFailure re-queues a failed occurrence with backoff. The lock is
// released by the caller, so the retried envelope can be picked up again;
// handlers are idempotent, making a duplicate run of a retried occurrence
// harmless.
func (p *Pool) handleFailure(ctx context.Context, fired *models.FiredJob, err error) {
	fired.Retries++

	if fired.Retries >= maxReminderAttempts {
		log.Printf("Reminder %s failed permanently after %d attempts: %v", fired.Key, fired.Retries, err)
		return
	}

	body, marshalErr := json.Marshal(fired)
	if marshalErr != nil {
		log.Printf("Reminder %s failed and could not be re-queued: %v", fired.Key, marshalErr)
		return
	}

	log.Printf("Reminder %s failed (attempt %d): %v — retrying", fired.Key, fired.Retries, err)

	// Re-queue after backoff
	time.AfterFunc(retryBackoff(fired.Retries), func() {
		if pushErr := p.redis.LPush(context.Background(), scheduler.QueueReminderDispatch, body).Err(); pushErr != nil {
			log.Printf("Failed to re-queue reminder %s: %v", fired.Key, pushErr)
		}
	})
}

func retryBackoff(retries int) time.Duration {
	return time.Duration(1<<uint(retries)) * time.Second
}

func (p *Pool) handle(ctx context.Context, fired *models.FiredJob) error {
	var payload models.ReminderPayload
	if err := json.Unmarshal(fired.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse reminder payload: %w", err)
	}

	switch payload.Type {
	case models.ReminderTaskDue:
		return p.tasks.SendReminder(ctx, payload)
	case models.ReminderNotesDueScan:
		p.scans.Run(ctx, payload.UserID)
		return nil
	default:
		return fmt.Errorf("unknown reminder type: %s", payload.Type)
	}
}
