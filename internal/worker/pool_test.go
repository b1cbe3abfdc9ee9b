package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"studyhub-backend/internal/models"
)

func TestHandle_UnknownReminderType(t *testing.T) {
	p := &Pool{}
	payload, _ := json.Marshal(models.ReminderPayload{Type: "mystery"})
	fired := &models.FiredJob{Key: "task:x", Kind: models.JobOneShot, Payload: payload}

	if err := p.handle(context.Background(), fired); err == nil {
		t.Error("expected error for unknown reminder type")
	}
}

func TestHandle_MalformedPayload(t *testing.T) {
	p := &Pool{}
	fired := &models.FiredJob{Key: "task:x", Kind: models.JobOneShot, Payload: []byte("{not json")}

	if err := p.handle(context.Background(), fired); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestHandleFailure_GivesUpAfterMaxAttempts(t *testing.T) {
	// No redis client needed: at the attempt cap the failure path must return
	// without scheduling a re-queue.
	p := &Pool{}
	fired := &models.FiredJob{Key: "task:x", Retries: maxReminderAttempts - 1}

	p.handleFailure(context.Background(), fired, errors.New("store unavailable"))

	if fired.Retries != maxReminderAttempts {
		t.Errorf("expected retries to reach %d, got %d", maxReminderAttempts, fired.Retries)
	}
}

func TestRetryBackoff_GrowsExponentially(t *testing.T) {
	tests := []struct {
		retries int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}

	for _, tc := range tests {
		if got := retryBackoff(tc.retries); got != tc.want {
			t.Errorf("retries %d: expected %v, got %v", tc.retries, tc.want, got)
		}
	}
}
