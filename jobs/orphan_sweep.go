package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/waari-travel/waari-erp/internal/jobs"
)

// TaskOrphanSweep removes permission grants left behind by deleted roles.
const TaskOrphanSweep = "rbac:orphan-sweep"

// OrphanSweeper deletes grants whose role no longer exists.
type OrphanSweeper interface {
	DeleteOrphanGrants(ctx context.Context) (int64, error)
}

// OrphanSweepJob runs the sweep.
type OrphanSweepJob struct {
	Store   OrphanSweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOrphanSweepJob constructs the job handler.
func NewOrphanSweepJob(store OrphanSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrphanSweepJob {
	return &OrphanSweepJob{Store: store, Logger: logger, Metrics: metrics}
}

// NewOrphanSweepTask creates the periodic sweep task.
func NewOrphanSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOrphanSweep, nil, asynq.Queue(QueueDefault))
}

// Handle executes the sweep.
func (j *OrphanSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("orphan sweep: store not configured")
	}
	tracker := j.metrics().Track(TaskOrphanSweep)
	removed, err := j.Store.DeleteOrphanGrants(ctx)
	if err != nil {
		j.log().Error("delete orphan grants", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddSweptGrants(removed)
	if removed > 0 {
		j.log().Warn("removed orphan grants", slog.Int64("rows", removed))
	}
	return tracker.End(nil)
}

func (j *OrphanSweepJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OrphanSweepJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOrphanSweep))
	}
	return slog.Default().With(slog.String("job", TaskOrphanSweep))
}
