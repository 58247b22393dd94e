package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// GenerateScheduleRequest carries the data for one weekly schedule run.
// Omitting classrooms selects the default room set.
type GenerateScheduleRequest struct {
	Teachers   []models.Teacher   `json:"teachers" validate:"max=500,dive"`
	Classes    []models.Class     `json:"classes" validate:"max=2000,dive"`
	Classrooms []models.Classroom `json:"classrooms,omitempty" validate:"omitempty,max=500,dive"`
}

// GenerateScheduleResponse returns the conflict-free schedule and room usage.
type GenerateScheduleResponse struct {
	RunID         string                `json:"runId"`
	Source        models.ScheduleSource `json:"source"`
	Feasible      bool                  `json:"feasible"`
	ScheduleItems []models.ScheduleItem `json:"scheduleItems"`
	Classrooms    []models.Classroom    `json:"classrooms"`
	Warnings      []models.Warning      `json:"warnings,omitempty"`
	Shortfalls    []models.Shortfall    `json:"shortfalls,omitempty"`
	GeneratedAt   time.Time             `json:"generatedAt"`
}

// ScheduleRunQuery pages through recent runs.
type ScheduleRunQuery struct {
	Limit int `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
}

// ExportScheduleRequest selects the rendered format of a run.
type ExportScheduleRequest struct {
	Format string `json:"format" validate:"required,oneof=csv xls pdf"`
}

// ExportScheduleResponse points at a signed download.
type ExportScheduleResponse struct {
	RunID     string    `json:"runId"`
	Format    string    `json:"format"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
