package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sanctus-app/sanctus/internal/jobs"
)

// OverrideSweeper deactivates elapsed permission overrides.
type OverrideSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// OverridesExpireJob runs the override expiry sweep.
type OverridesExpireJob struct {
	Sweeper OverrideSweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOverridesExpireJob initialises the sweep handler.
func NewOverridesExpireJob(sweeper OverrideSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverridesExpireJob {
	return &OverridesExpireJob{Sweeper: sweeper, Logger: logger, Metrics: metrics}
}

// Handle executes the sweep.
func (j *OverridesExpireJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Sweeper == nil {
		return errors.New("overrides expire: handler not configured")
	}
	tracker := j.Metrics.Track(TaskOverridesExpire)
	defer func() { err = tracker.End(err) }()

	n, err := j.Sweeper.SweepExpired(ctx)
	if err != nil {
		j.logger().Error("override sweep failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskOverridesExpire, n)
	if n > 0 {
		j.logger().Info("expired permission overrides", slog.Int64("count", n))
	}
	return nil
}

func (j *OverridesExpireJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
