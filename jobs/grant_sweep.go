package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Krosebrook/CreatorStudioLite-sub000/internal/jobs"
)

// GrantPurger removes grants that expired before the cutoff implied by the
// retention window. The grants service implements it.
type GrantPurger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// GrantSweepJob deletes long-expired role grants. The policy engine treats
// expired grants as inert but never deletes them; this job is the cleanup
// collaborator.
type GrantSweepJob struct {
	purger  GrantPurger
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewGrantSweepJob constructs the sweep job.
func NewGrantSweepJob(purger GrantPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *GrantSweepJob {
	return &GrantSweepJob{purger: purger, logger: logger, metrics: metrics}
}

// Handle processes TaskGrantSweep tasks.
func (j *GrantSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("grant_sweep")
	var payload GrantSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("grant sweep payload", slog.Any("error", err))
		return tracker.End(asynq.SkipRetry)
	}
	removed, err := j.purger.PurgeExpired(ctx, payload.Retention)
	if err != nil {
		j.logger.Error("grant sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics.AddPurged(removed)
	j.logger.Info("grant sweep complete", slog.Int64("removed", removed))
	return tracker.End(nil)
}
