package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type countingPlanner struct {
	inner *scheduler.Planner
	calls int
}

func (p *countingPlanner) CreateSchedule(ctx context.Context, teachers []models.Teacher, classes []models.Class, classrooms []models.Classroom) (*scheduler.Result, error) {
	p.calls++
	return p.inner.CreateSchedule(ctx, teachers, classes, classrooms)
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(context.Context, string) error {
	m.mu.Lock()
	m.entries = map[string][]byte{}
	m.mu.Unlock()
	return nil
}

type recordingSink struct {
	runs []models.ScheduleRun
}

func (r *recordingSink) Record(run models.ScheduleRun) {
	r.runs = append(r.runs, run)
}

type stubRunRepo struct {
	run     *models.ScheduleRun
	err     error
	list    []models.ScheduleRunSummary
	listErr error
	limit   int
}

func (s *stubRunRepo) FindByID(context.Context, string) (*models.ScheduleRun, error) {
	return s.run, s.err
}

func (s *stubRunRepo) ListRecent(_ context.Context, limit int) ([]models.ScheduleRunSummary, error) {
	s.limit = limit
	return s.list, s.listErr
}

type scheduleFixture struct {
	service *ScheduleService
	planner *countingPlanner
	cache   *memoryCacheRepo
	sink    *recordingSink
	metrics *MetricsService
}

func newScheduleFixture(t *testing.T, runs scheduleRunReader) scheduleFixture {
	t.Helper()
	planner := &countingPlanner{inner: scheduler.NewPlanner(scheduler.Options{DefaultClassrooms: DefaultClassrooms()})}
	cacheRepo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	sink := &recordingSink{}
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	svc := NewScheduleService(planner, runs, sink, cache, metrics, nil, nil, ScheduleServiceConfig{CacheTTL: time.Minute})
	return scheduleFixture{service: svc, planner: planner, cache: cacheRepo, sink: sink, metrics: metrics}
}

func sampleRequest() dto.GenerateScheduleRequest {
	return dto.GenerateScheduleRequest{
		Teachers: []models.Teacher{{ID: "t1", Name: "Ana", Subjects: []string{"Math"}, Availability: []string{"Monday", "Tuesday", "Wednesday"}}},
		Classes:  []models.Class{{ID: "c1", Name: "7A", Subject: "Math", TeacherID: "t1", Hours: 3, Students: 28}},
	}
}

func TestScheduleServiceGenerateUsesDefaultRooms(t *testing.T) {
	fx := newScheduleFixture(t, nil)

	resp, hit, err := fx.service.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEmpty(t, resp.RunID)
	assert.True(t, resp.Feasible)
	assert.Equal(t, models.SourceHeuristic, resp.Source)
	require.Len(t, resp.ScheduleItems, 3)
	assert.Equal(t, "Room 101", resp.ScheduleItems[0].ClassroomName)
	assert.Len(t, resp.Classrooms, 6)
	assert.Equal(t, 8, resp.Classrooms[0].UsagePercentage)

	require.Len(t, fx.sink.runs, 1)
	assert.Equal(t, resp.RunID, fx.sink.runs[0].ID)
	assert.Equal(t, 3, fx.sink.runs[0].ItemCount)

	stored, err := fx.service.Get(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.ScheduleItems, stored.ScheduleItems)
}

func TestScheduleServiceGenerateCacheHitSkipsPlanner(t *testing.T) {
	fx := newScheduleFixture(t, nil)

	first, hit, err := fx.service.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.False(t, hit)

	second, hit, err := fx.service.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, 1, fx.planner.calls)
	assert.Equal(t, 0.5, fx.metrics.Snapshot().CacheHitRatio)
}

func TestScheduleServiceCacheKeyDistinguishesEmptyRooms(t *testing.T) {
	fx := newScheduleFixture(t, nil)

	req := sampleRequest()
	_, _, err := fx.service.Generate(context.Background(), req)
	require.NoError(t, err)

	req.Classrooms = []models.Classroom{}
	resp, hit, err := fx.service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, resp.Feasible)
	require.Len(t, resp.Shortfalls, 1)
	assert.Equal(t, 2, fx.planner.calls)
}

func TestScheduleServiceGenerateCacheErrorStillServes(t *testing.T) {
	fx := newScheduleFixture(t, nil)
	fx.cache.getErr = errors.New("redis down")

	resp, hit, err := fx.service.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, resp.ScheduleItems, 3)
}

func TestScheduleServiceGenerateValidation(t *testing.T) {
	fx := newScheduleFixture(t, nil)

	_, _, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		Classes: []models.Class{{ID: "c1", Name: "7A", Subject: "Math", TeacherID: "t1", Hours: 1, Students: 1}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "No teachers provided", appErr.Message)

	req := sampleRequest()
	req.Classrooms = []models.Classroom{{ID: "r1", Name: "Room", Capacity: 0}}
	_, _, err = fx.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "invalid schedule generation payload", appErrors.FromError(err).Message)
	assert.Equal(t, 1, fx.planner.calls)
}

func TestScheduleServiceGetFallsBackToRepository(t *testing.T) {
	payload, err := json.Marshal(dto.GenerateScheduleResponse{RunID: "run-9", Source: models.SourceOracle})
	require.NoError(t, err)
	fx := newScheduleFixture(t, &stubRunRepo{run: &models.ScheduleRun{ID: "run-9", Payload: types.JSONText(payload)}})

	resp, err := fx.service.Get(context.Background(), "run-9")
	require.NoError(t, err)
	assert.Equal(t, models.SourceOracle, resp.Source)
}

func TestScheduleServiceGetNotFound(t *testing.T) {
	withRepo := newScheduleFixture(t, &stubRunRepo{err: sql.ErrNoRows})
	_, err := withRepo.service.Get(context.Background(), "nope")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	memoryOnly := newScheduleFixture(t, nil)
	_, err = memoryOnly.service.Get(context.Background(), "nope")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	broken := newScheduleFixture(t, &stubRunRepo{err: errors.New("db gone")})
	_, err = broken.service.Get(context.Background(), "nope")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceList(t *testing.T) {
	memoryOnly := newScheduleFixture(t, nil)
	_, _, err := memoryOnly.service.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	runs, err := memoryOnly.service.List(context.Background(), dto.ScheduleRunQuery{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].ItemCount)

	repo := &stubRunRepo{}
	withRepo := newScheduleFixture(t, repo)
	runs, err = withRepo.service.List(context.Background(), dto.ScheduleRunQuery{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
	assert.Equal(t, 5, repo.limit)

	_, err = withRepo.service.List(context.Background(), dto.ScheduleRunQuery{Limit: 500})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
