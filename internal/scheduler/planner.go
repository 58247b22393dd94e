package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Options configures a Planner.
type Options struct {
	// Source defaults to HeuristicSource.
	Source CandidateSource
	// DefaultClassrooms is used when CreateSchedule receives nil classrooms.
	DefaultClassrooms []models.Classroom
	Logger            *zap.Logger
}

// Result is a conflict-free weekly schedule with its room usage.
type Result struct {
	ScheduleItems []models.ScheduleItem  `json:"scheduleItems"`
	Classrooms    []models.Classroom     `json:"classrooms"`
	Conflicts     []models.ConflictGroup `json:"conflicts,omitempty"`
	Warnings      []models.Warning       `json:"warnings,omitempty"`
	Shortfalls    []models.Shortfall     `json:"shortfalls,omitempty"`
	Source        models.ScheduleSource  `json:"source"`
}

// Feasible reports whether at least one session was placed.
func (r *Result) Feasible() bool {
	return r != nil && len(r.ScheduleItems) > 0
}

// ShortfallSessions sums the sessions missing across all classes.
func (r *Result) ShortfallSessions() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, s := range r.Shortfalls {
		total += s.Required - s.Scheduled
	}
	return total
}

// Planner is the entry point of the scheduling pipeline. It is safe for concurrent use.
type Planner struct {
	source   CandidateSource
	defaults []models.Classroom
	logger   *zap.Logger
}

// NewPlanner builds a planner from opts.
func NewPlanner(opts Options) *Planner {
	if opts.Source == nil {
		opts.Source = HeuristicSource{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	defaults := make([]models.Classroom, len(opts.DefaultClassrooms))
	copy(defaults, opts.DefaultClassrooms)
	return &Planner{source: opts.Source, defaults: defaults, logger: opts.Logger}
}

// CreateSchedule validates input, obtains a candidate, strips conflicts and
// annotates room usage. It fails only on invalid input or when every candidate
// source fails; an empty schedule is a valid result.
func (p *Planner) CreateSchedule(ctx context.Context, teachers []models.Teacher, classes []models.Class, classrooms []models.Classroom) (*Result, error) {
	if err := Validate(teachers, classes); err != nil {
		return nil, err
	}
	if classrooms == nil {
		classrooms = make([]models.Classroom, len(p.defaults))
		copy(classrooms, p.defaults)
	}
	in := Input{Teachers: teachers, Classes: classes, Classrooms: classrooms}

	candidate, err := p.source.Candidate(ctx, in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to obtain a candidate schedule")
	}

	items := candidate.Items
	warnings := append([]models.Warning(nil), candidate.Warnings...)
	if candidate.Source == models.SourceOracle {
		var discarded []models.Warning
		items, discarded = Sanitize(in, items)
		warnings = append(warnings, discarded...)
		if len(candidate.UsageHints) > 0 {
			p.logger.Debug("ignoring classroom usage hints from candidate", zap.Int("hints", len(candidate.UsageHints)))
		}
	}

	conflicts := FindConflicts(items)
	if len(conflicts) > 0 {
		items = Resolve(items, conflicts)
		for _, group := range conflicts {
			warnings = append(warnings, conflictWarning(group))
		}
		p.logger.Warn("resolved schedule conflicts",
			zap.String("source", string(candidate.Source)),
			zap.Int("groups", len(conflicts)),
		)
	}
	if items == nil {
		items = make([]models.ScheduleItem, 0)
	}

	result := &Result{
		ScheduleItems: items,
		Classrooms:    Annotate(classrooms, items),
		Conflicts:     conflicts,
		Warnings:      warnings,
		Shortfalls:    Shortfalls(classes, items),
		Source:        candidate.Source,
	}
	if !result.Feasible() {
		p.logger.Info("no feasible schedule for input", zap.Int("classes", len(classes)), zap.Int("classrooms", len(classrooms)))
	}
	return result, nil
}

// Shortfalls lists classes placed below their weekly hours, in input order.
func Shortfalls(classes []models.Class, items []models.ScheduleItem) []models.Shortfall {
	scheduled := make(map[string]int)
	for _, item := range items {
		scheduled[item.ClassID]++
	}
	seen := make(map[string]struct{}, len(classes))
	var shortfalls []models.Shortfall
	for _, c := range classes {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if scheduled[c.ID] < c.Hours {
			shortfalls = append(shortfalls, models.Shortfall{
				ClassID:   c.ID,
				ClassName: c.Name,
				Required:  c.Hours,
				Scheduled: scheduled[c.ID],
			})
		}
	}
	return shortfalls
}

func conflictWarning(group models.ConflictGroup) models.Warning {
	ids := make([]string, 0, len(group.Items))
	for _, item := range group.Items {
		ids = append(ids, item.ID)
	}
	return models.Warning{
		Type: models.WarningConflictResolved,
		Message: fmt.Sprintf("%s %s double-booked on %s at %s; removed %d later session(s)",
			group.Type, group.Key, group.Day, group.Start, len(ids)-1),
		ItemIDs: ids,
	}
}
