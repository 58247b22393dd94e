package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleSource labels which candidate source produced a run.
type ScheduleSource string

const (
	SourceHeuristic         ScheduleSource = "heuristic"
	SourceOracle            ScheduleSource = "oracle"
	SourceHeuristicFallback ScheduleSource = "heuristic_fallback"
)

// ScheduleRun is a stored snapshot of one weekly schedule result.
type ScheduleRun struct {
	ID        string         `db:"id" json:"id"`
	Source    ScheduleSource `db:"source" json:"source"`
	ItemCount int            `db:"item_count" json:"item_count"`
	Feasible  bool           `db:"feasible" json:"feasible"`
	Payload   types.JSONText `db:"payload" json:"payload"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// ScheduleRunSummary is the list view of a run.
type ScheduleRunSummary struct {
	ID        string         `db:"id" json:"id"`
	Source    ScheduleSource `db:"source" json:"source"`
	ItemCount int            `db:"item_count" json:"item_count"`
	Feasible  bool           `db:"feasible" json:"feasible"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
