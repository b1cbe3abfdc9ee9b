package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobOneShot JobKind = "one_shot"
	JobDaily   JobKind = "daily"
)

type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobFired     JobStatus = "fired"
	JobCancelled JobStatus = "cancelled"
)

// ScheduledJob is the durable scheduler's persisted entity. Key is the dedup
// key (`task:{taskId}`, `notes-due-scan:{userId}`): re-registering under an
// existing key replaces the pending job instead of accumulating a duplicate.
type ScheduledJob struct {
	Key         string          `json:"key"`
	Kind        JobKind         `json:"kind"`
	FireAt      *time.Time      `json:"fire_at,omitempty"`     // one-shot only
	TimeOfDay   string          `json:"time_of_day,omitempty"` // daily only, "HH:MM"
	PayloadJSON json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FiredJob is the envelope pushed onto the dispatch queue when a job's time
// arrives. Occurrence identifies one firing of a periodic job so workers can
// dedup duplicate deliveries. Retries counts failed handler attempts on the
// worker side; the one-shot row is already fired by dispatch time, so losing
// the envelope would lose the reminder.
type FiredJob struct {
	Key        string          `json:"key"`
	Kind       JobKind         `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	FiredAt    time.Time       `json:"fired_at"`
	Occurrence string          `json:"occurrence"`
	Retries    int             `json:"retries,omitempty"`
}

// Reminder payload types carried in ScheduledJob.PayloadJSON.
const (
	ReminderTaskDue      = "task-reminder"
	ReminderNotesDueScan = "notes-due-scan"
)

type ReminderPayload struct {
	Type   string    `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	TaskID uuid.UUID `json:"task_id,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
