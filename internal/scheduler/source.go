// Package scheduler assigns weekly teaching sessions to rooms and time slots.
//
// The pipeline is Validate, a CandidateSource, Sanitize (oracle output only),
// FindConflicts, Resolve and Annotate. Every call owns its slot state, so a
// Planner can serve concurrent requests without locking.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DefaultOracleTimeout bounds a primary candidate call when FallbackSource.Timeout is unset.
const DefaultOracleTimeout = 5 * time.Second

// ErrEmptyCandidate is returned when a source answers without a schedule item list.
var ErrEmptyCandidate = errors.New("candidate source returned no schedule items")

// Input is the read-only data a candidate source works from.
type Input struct {
	Teachers   []models.Teacher
	Classes    []models.Class
	Classrooms []models.Classroom
}

// Candidate is a raw assignment. Only heuristic output is trusted as-is.
type Candidate struct {
	Items      []models.ScheduleItem
	UsageHints map[string]int
	Source     models.ScheduleSource
	Warnings   []models.Warning
}

// CandidateSource produces a best-effort assignment for the input.
type CandidateSource interface {
	Candidate(ctx context.Context, in Input) (Candidate, error)
}

// HeuristicSource runs the greedy generator. It never fails.
type HeuristicSource struct{}

// Candidate implements CandidateSource.
func (HeuristicSource) Candidate(_ context.Context, in Input) (Candidate, error) {
	return Candidate{
		Items:  Generate(in.Teachers, in.Classes, in.Classrooms),
		Source: models.SourceHeuristic,
	}, nil
}

// FallbackSource asks Primary first under a deadline and answers from Fallback on any failure.
type FallbackSource struct {
	Primary  CandidateSource
	Fallback CandidateSource
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewFallbackSource decorates primary with the heuristic generator.
func NewFallbackSource(primary CandidateSource, timeout time.Duration, logger *zap.Logger) *FallbackSource {
	return &FallbackSource{
		Primary:  primary,
		Fallback: HeuristicSource{},
		Timeout:  timeout,
		Logger:   logger,
	}
}

// Candidate implements CandidateSource.
func (f *FallbackSource) Candidate(ctx context.Context, in Input) (Candidate, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := f.Fallback
	if fallback == nil {
		fallback = HeuristicSource{}
	}

	err := errors.New("no primary candidate source configured")
	if f.Primary != nil {
		var candidate Candidate
		candidate, err = f.callPrimary(ctx, in)
		if err == nil {
			return candidate, nil
		}
	}

	logger.Warn("candidate source failed, using heuristic fallback", zap.Error(err))
	// the fallback is synchronous and fast; a cancelled caller just discards the result
	candidate, fbErr := fallback.Candidate(context.WithoutCancel(ctx), in)
	if fbErr != nil {
		return Candidate{}, errors.Join(err, fbErr)
	}
	candidate.Source = models.SourceHeuristicFallback
	candidate.Warnings = append(candidate.Warnings, models.Warning{
		Type:    models.WarningOracleFallback,
		Message: "external schedule source unavailable: " + err.Error(),
	})
	return candidate, nil
}

func (f *FallbackSource) callPrimary(ctx context.Context, in Input) (Candidate, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidate, err := f.Primary.Candidate(callCtx, in)
	if err != nil {
		return Candidate{}, err
	}
	if candidate.Items == nil {
		return Candidate{}, ErrEmptyCandidate
	}
	if candidate.Source == "" {
		candidate.Source = models.SourceOracle
	}
	return candidate, nil
}
