package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestCreateScheduleSimpleFeasibleCase(t *testing.T) {
	planner := NewPlanner(Options{})
	result, err := planner.CreateSchedule(context.Background(),
		[]models.Teacher{teacher("t1", "Ana")},
		[]models.Class{class("c1", "t1", 2, 20)},
		[]models.Classroom{room("r1", 30)},
	)
	require.NoError(t, err)

	require.Len(t, result.ScheduleItems, 2)
	assert.NotEqual(t, result.ScheduleItems[0].Day, result.ScheduleItems[1].Day)
	for _, it := range result.ScheduleItems {
		assert.Equal(t, "r1", it.ClassroomID)
	}
	require.Len(t, result.Classrooms, 1)
	assert.Equal(t, 5, result.Classrooms[0].UsagePercentage)
	assert.Equal(t, models.SourceHeuristic, result.Source)
	assert.True(t, result.Feasible())
	assert.Empty(t, result.Shortfalls)
}

func TestCreateScheduleRejectsInvalidInput(t *testing.T) {
	planner := NewPlanner(Options{})

	_, err := planner.CreateSchedule(context.Background(), nil, []models.Class{class("c1", "t1", 1, 1)}, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "No teachers")

	_, err = planner.CreateSchedule(context.Background(),
		[]models.Teacher{{ID: "t1", Name: "Ana", Subjects: []string{"Math"}}},
		[]models.Class{class("c1", "t1", 1, 1)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ana")
}

func TestCreateScheduleInfeasibleCapacity(t *testing.T) {
	planner := NewPlanner(Options{})
	result, err := planner.CreateSchedule(context.Background(),
		[]models.Teacher{teacher("t1", "Ana")},
		[]models.Class{class("c1", "t1", 3, 50)},
		[]models.Classroom{room("r1", 30), room("r2", 45)},
	)
	require.NoError(t, err)
	assert.Empty(t, result.ScheduleItems)
	assert.NotNil(t, result.ScheduleItems)
	assert.False(t, result.Feasible())
	require.Len(t, result.Shortfalls, 1)
	assert.Equal(t, models.Shortfall{ClassID: "c1", ClassName: "Class c1", Required: 3, Scheduled: 0}, result.Shortfalls[0])
	assert.Equal(t, 3, result.ShortfallSessions())
	for _, r := range result.Classrooms {
		assert.Zero(t, r.UsagePercentage)
	}
}

func TestCreateScheduleUsesDefaultClassrooms(t *testing.T) {
	defaults := []models.Classroom{room("d1", 40)}
	planner := NewPlanner(Options{DefaultClassrooms: defaults})

	result, err := planner.CreateSchedule(context.Background(),
		[]models.Teacher{teacher("t1", "Ana")},
		[]models.Class{class("c1", "t1", 1, 20)},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, result.Classrooms, 1)
	assert.Equal(t, "d1", result.Classrooms[0].ID)
	assert.Zero(t, defaults[0].UsagePercentage)

	empty, err := planner.CreateSchedule(context.Background(),
		[]models.Teacher{teacher("t1", "Ana")},
		[]models.Class{class("c1", "t1", 1, 20)},
		[]models.Classroom{},
	)
	require.NoError(t, err)
	assert.Empty(t, empty.ScheduleItems)
}

func TestCreateScheduleOracleFallbackMatchesHeuristic(t *testing.T) {
	in := randomInput(11)
	oracle := &stubSource{err: errors.New("network unreachable")}
	withOracle := NewPlanner(Options{Source: NewFallbackSource(oracle, 50*time.Millisecond, nil)})
	plain := NewPlanner(Options{})

	fallback, err := withOracle.CreateSchedule(context.Background(), in.Teachers, in.Classes, in.Classrooms)
	require.NoError(t, err)
	direct, err := plain.CreateSchedule(context.Background(), in.Teachers, in.Classes, in.Classrooms)
	require.NoError(t, err)

	assert.Equal(t, direct.ScheduleItems, fallback.ScheduleItems)
	assert.Equal(t, direct.Classrooms, fallback.Classrooms)
	assert.Equal(t, models.SourceHeuristicFallback, fallback.Source)
	assert.Equal(t, 1, oracle.calls)
}

func TestCreateScheduleSanitizesAndResolvesOracleOutput(t *testing.T) {
	teachers := []models.Teacher{teacher("t1", "Ana"), teacher("t2", "Budi", "Monday")}
	classes := []models.Class{class("c1", "t1", 2, 20), class("c2", "t2", 1, 20)}
	rooms := []models.Classroom{room("r1", 30), room("r2", 10)}
	oracle := &stubSource{candidate: Candidate{
		Source: models.SourceOracle,
		Items: []models.ScheduleItem{
			{ClassID: "c1", ClassroomID: "r1", Day: "Monday", StartTime: "08:00"},
			{ClassID: "c2", ClassroomID: "r1", Day: "Monday", StartTime: "08:00"},
			{ClassID: "c2", ClassroomID: "r2", Day: "Monday", StartTime: "09:00"},
			{ClassID: "c1", ClassroomID: "r1", Day: "Wednesday", StartTime: "13:00"},
		},
		UsageHints: map[string]int{"r1": 99},
	}}

	result, err := NewPlanner(Options{Source: oracle}).CreateSchedule(context.Background(), teachers, classes, rooms)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1-Monday-08:00", "c1-Wednesday-13:00"}, ids(result.ScheduleItems))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictClassroom, result.Conflicts[0].Type)
	assert.Equal(t, 5, result.Classrooms[0].UsagePercentage)
	assert.Equal(t, models.SourceOracle, result.Source)

	var types []models.WarningType
	for _, w := range result.Warnings {
		types = append(types, w.Type)
	}
	assert.Equal(t, []models.WarningType{models.WarningItemDiscarded, models.WarningConflictResolved}, types)
	assert.Equal(t, []models.Shortfall{{ClassID: "c2", ClassName: "Class c2", Required: 1, Scheduled: 0}}, result.Shortfalls)
}

func TestCreateScheduleFailsWhenAllSourcesFail(t *testing.T) {
	source := &FallbackSource{Primary: &stubSource{err: errors.New("a")}, Fallback: &stubSource{err: errors.New("b")}}
	_, err := NewPlanner(Options{Source: source}).CreateSchedule(context.Background(),
		[]models.Teacher{teacher("t1", "Ana")}, []models.Class{class("c1", "t1", 1, 1)}, nil)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestCreateScheduleUtilizationBounds(t *testing.T) {
	planner := NewPlanner(Options{})
	for seed := int64(100); seed < 130; seed++ {
		in := randomInput(seed)
		result, err := planner.CreateSchedule(context.Background(), in.Teachers, in.Classes, in.Classrooms)
		require.NoError(t, err)
		assertScheduleInvariants(t, in, result.ScheduleItems)

		used := map[string]bool{}
		for _, it := range result.ScheduleItems {
			used[it.ClassroomID] = true
		}
		for _, r := range result.Classrooms {
			assert.GreaterOrEqual(t, r.UsagePercentage, 0)
			assert.LessOrEqual(t, r.UsagePercentage, 100)
			if !used[r.ID] {
				assert.Zero(t, r.UsagePercentage)
			}
		}
	}
}

func TestAnnotateRoundsAndClamps(t *testing.T) {
	items := make([]models.ScheduleItem, 0, 45)
	for i := 0; i < 45; i++ {
		items = append(items, models.ScheduleItem{ClassroomID: "full"})
	}
	items = append(items, models.ScheduleItem{ClassroomID: "one"})

	rooms := []models.Classroom{room("full", 10), room("one", 10), room("idle", 10)}
	annotated := Annotate(rooms, items)
	assert.Equal(t, 100, annotated[0].UsagePercentage)
	assert.Equal(t, 3, annotated[1].UsagePercentage)
	assert.Equal(t, 0, annotated[2].UsagePercentage)
	assert.Zero(t, rooms[0].UsagePercentage)
}
