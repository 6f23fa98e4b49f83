package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
)

// MetricsService describes the behaviour required to rebuild weekly metric
// snapshots.
type MetricsService interface {
	Refresh(ctx context.Context, ownerID int64) error
	RefreshAll(ctx context.Context) error
}

// MetricsRefreshJob coordinates the scheduled refresh workflow. The nightly
// cron enqueues it with owner "all" so every active owner plus the company
// aggregate lands in fresh rows each morning.
type MetricsRefreshJob struct {
	Service MetricsService
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewMetricsRefreshJob constructs the job handler.
func NewMetricsRefreshJob(service MetricsService, logger *slog.Logger) *MetricsRefreshJob {
	return &MetricsRefreshJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the metrics refresh job.
func (j *MetricsRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("metrics refresh: dependencies not configured")
	}
	var payload MetricsRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Owner == "" {
		payload.Owner = "all"
	}

	start := j.now()
	if payload.Owner == "all" {
		if err := j.Service.RefreshAll(ctx); err != nil {
			j.log().Error("refresh all owners", slog.Any("error", err))
			return err
		}
		j.log().Info("refreshed weekly metrics", slog.String("scope", "all"), slog.Duration("duration", time.Since(start)))
		return nil
	}

	ownerID, err := strconv.ParseInt(payload.Owner, 10, 64)
	if err != nil || ownerID <= 0 {
		j.log().Error("invalid owner in payload", slog.String("owner", payload.Owner))
		return fmt.Errorf("invalid owner id %s: %w", payload.Owner, asynq.SkipRetry)
	}
	if err := j.Service.Refresh(ctx, ownerID); err != nil {
		j.log().Error("refresh owner", slog.Int64("owner_id", ownerID), slog.Any("error", err))
		return err
	}
	j.log().Info("refreshed weekly metrics", slog.Int64("owner_id", ownerID), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *MetricsRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskMetricsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskMetricsRefresh))
}

func (j *MetricsRefreshJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *MetricsRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
