package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ScheduleRunRepository persists schedule run snapshots.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository constructs repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

// Create inserts a run. Re-inserting the same ID is a no-op so queued retries stay safe.
func (r *ScheduleRunRepository) Create(ctx context.Context, run *models.ScheduleRun) error {
	if run == nil {
		return fmt.Errorf("schedule run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Source == "" {
		return fmt.Errorf("schedule run source is required")
	}
	if len(run.Payload) == 0 {
		run.Payload = types.JSONText(`{}`)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO schedule_runs (id, source, item_count, feasible, payload, created_at)
VALUES (:id, :source, :item_count, :feasible, :payload, :created_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("insert schedule run: %w", err)
	}
	return nil
}

// FindByID loads a run with its payload. Missing rows surface as sql.ErrNoRows.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	const query = `SELECT id, source, item_count, feasible, payload, created_at FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns run summaries, newest first.
func (r *ScheduleRunRepository) ListRecent(ctx context.Context, limit int) ([]models.ScheduleRunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, source, item_count, feasible, created_at FROM schedule_runs ORDER BY created_at DESC LIMIT $1`
	var runs []models.ScheduleRunSummary
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan prunes runs created before cutoff and reports how many were removed.
func (r *ScheduleRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM schedule_runs WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete schedule runs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("schedule runs rows affected: %w", err)
	}
	return affected, nil
}
