package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/scheduler"
)

type TaskService struct {
	tasks    *repository.TaskRepo
	sched    *scheduler.Scheduler
	notifier Notifier
}

func NewTaskService(tasks *repository.TaskRepo, sched *scheduler.Scheduler, notifier Notifier) *TaskService {
	return &TaskService{tasks: tasks, sched: sched, notifier: notifier}
}

func (s *TaskService) Create(ctx context.Context, userID uuid.UUID, req models.CreateTaskRequest) (*models.Task, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = "Title is required"
	}
	if req.DueAt.IsZero() {
		fields["due_at"] = "Due time is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	task := &models.Task{
		UserID: userID,
		Title:  strings.TrimSpace(req.Title),
		DueAt:  req.DueAt,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if err := s.registerReminder(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return s.tasks.ListByUser(ctx, userID)
}

// ToggleComplete flips completion and keeps the reminder job in sync:
// completing cancels it, un-completing re-registers it if the due time is
// still ahead.
func (s *TaskService) ToggleComplete(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Task not found"}
		}
		return nil, err
	}

	updated, err := s.tasks.SetCompleted(ctx, taskID, userID, !task.Completed)
	if err != nil {
		return nil, err
	}

	if updated.Completed {
		if err := s.sched.Cancel(ctx, scheduler.TaskKey(taskID)); err != nil {
			return nil, fmt.Errorf("failed to cancel reminder: %w", err)
		}
	} else if err := s.registerReminder(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to re-schedule reminder: %w", err)
	}

	return updated, nil
}

// Delete cancels the reminder before removing the row, so no job outlives
// its task.
func (s *TaskService) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.sched.Cancel(ctx, scheduler.TaskKey(taskID)); err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return s.tasks.Delete(ctx, taskID, userID)
}

// SendReminder runs when a task's one-shot job fires. It is idempotent
// against stray deliveries: a task that no longer exists or was completed
// after the job fired produces no notification.
func (s *TaskService) SendReminder(ctx context.Context, p models.ReminderPayload) error {
	task, err := s.tasks.GetByID(ctx, p.TaskID, p.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if task.Completed {
		return nil
	}

	body := fmt.Sprintf("%q is due now", task.Title)
	if err := s.notifier.Deliver(ctx, p.UserID, "Task reminder", body, "task-reminders"); err != nil {
		log.Printf("task reminder: failed to deliver for task %s: %v", task.ID, err)
	}
	return nil
}

func (s *TaskService) registerReminder(ctx context.Context, task *models.Task) error {
	if task.UserID == uuid.Nil || !task.DueAt.After(time.Now()) {
		return nil
	}

	payload, err := json.Marshal(models.ReminderPayload{
		Type:   models.ReminderTaskDue,
		UserID: task.UserID,
		TaskID: task.ID,
	})
	if err != nil {
		return err
	}
	return s.sched.RegisterOneShot(ctx, scheduler.TaskKey(task.ID), task.DueAt, payload)
}
