package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const persistRunJob = "persist_schedule_run"

type scheduleRunWriter interface {
	Create(ctx context.Context, run *models.ScheduleRun) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunRecorderConfig sizes the persistence worker pool.
type RunRecorderConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	// Retention prunes persisted runs older than this; zero keeps them forever.
	Retention time.Duration
}

// RunRecorder persists schedule runs off the request path through a job queue.
type RunRecorder struct {
	repo      scheduleRunWriter
	metrics   *MetricsService
	queue     *jobs.Queue
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewRunRecorder builds a recorder; call Start before Record.
func NewRunRecorder(repo scheduleRunWriter, metrics *MetricsService, cfg RunRecorderConfig, logger *zap.Logger) *RunRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &RunRecorder{repo: repo, metrics: metrics, logger: logger, retention: cfg.Retention, now: time.Now}
	r.queue = jobs.NewQueue("schedule-runs", r.Handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return r
}

// Start launches the workers and, with a retention set, an hourly pruning loop.
func (r *RunRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
	if r.retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Prune(ctx); err != nil {
					r.logger.Warn("schedule run pruning failed", zap.Error(err))
				}
			}
		}
	}()
}

// Prune deletes persisted runs older than the retention window.
func (r *RunRecorder) Prune(ctx context.Context) (int64, error) {
	if r.retention <= 0 {
		return 0, nil
	}
	start := time.Now()
	removed, err := r.repo.DeleteOlderThan(ctx, r.now().Add(-r.retention))
	r.metrics.ObserveDBQuery("schedule_runs.prune", time.Since(start))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.Info("pruned schedule runs", zap.Int64("count", removed))
	}
	return removed, nil
}

// Stop drains buffered runs within timeout.
func (r *RunRecorder) Stop(timeout time.Duration) {
	r.queue.Stop(timeout)
}

// Record enqueues run for persistence. A full queue drops the snapshot with a warning.
func (r *RunRecorder) Record(run models.ScheduleRun) {
	if err := r.queue.Enqueue(jobs.Job{ID: run.ID, Type: persistRunJob, Payload: run}); err != nil {
		r.logger.Warn("schedule run not persisted", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// Stats reports the persistence queue counters.
func (r *RunRecorder) Stats() jobs.Stats {
	return r.queue.Stats()
}

// Handle writes one queued run.
func (r *RunRecorder) Handle(ctx context.Context, job jobs.Job) error {
	run, ok := job.Payload.(models.ScheduleRun)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	start := time.Now()
	err := r.repo.Create(ctx, &run)
	r.metrics.ObserveDBQuery("schedule_runs.insert", time.Since(start))
	if err != nil {
		return err
	}
	r.logger.Debug("schedule run persisted", zap.String("run_id", run.ID), zap.Int("attempt", job.Attempt))
	return nil
}
