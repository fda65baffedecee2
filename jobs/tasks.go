package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverridesExpire deactivates permission overrides past their expiry.
	TaskOverridesExpire = "overrides:expire"
	// TaskIdempotencyCleanup prunes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"

	// DefaultIdempotencyRetention keeps keys long enough for client retries.
	DefaultIdempotencyRetention = 7 * 24 * time.Hour
)

// IdempotencyCleanupPayload configures one cleanup run.
type IdempotencyCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// Retention converts the payload into a duration, defaulting when unset.
func (p IdempotencyCleanupPayload) Retention() time.Duration {
	if p.OlderThanHours <= 0 {
		return DefaultIdempotencyRetention
	}
	return time.Duration(p.OlderThanHours) * time.Hour
}

// NewOverridesExpireTask constructs an override sweep task.
func NewOverridesExpireTask() *asynq.Task {
	return asynq.NewTask(TaskOverridesExpire, nil)
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
