package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sanctus-app/sanctus/internal/jobs"
)

// KeyPruner removes idempotency keys older than a retention window.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes stale idempotency keys.
type IdempotencyCleanupJob struct {
	Keys    KeyPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(keys KeyPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle executes one cleanup run.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	retention := payload.Retention()
	n, err := j.Keys.Cleanup(ctx, retention)
	if err != nil {
		j.logger().Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskIdempotencyCleanup, n)
	j.logger().Info("pruned idempotency keys", slog.Int64("count", n), slog.Duration("retention", retention))
	return nil
}

func (j *IdempotencyCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
