package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const defaultRunListLimit = 20

type schedulePlanner interface {
	CreateSchedule(ctx context.Context, teachers []models.Teacher, classes []models.Class, classrooms []models.Classroom) (*scheduler.Result, error)
}

type scheduleRunReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	ListRecent(ctx context.Context, limit int) ([]models.ScheduleRunSummary, error)
}

type runSink interface {
	Record(run models.ScheduleRun)
}

// ScheduleServiceConfig governs caching and run retention.
type ScheduleServiceConfig struct {
	CacheTTL time.Duration
	RunTTL   time.Duration
}

// ScheduleService runs the planner for API and CLI callers and keeps the results addressable.
type ScheduleService struct {
	planner   schedulePlanner
	runs      scheduleRunReader
	recorder  runSink
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *runStore
	cacheTTL  time.Duration
}

// NewScheduleService wires the planner with its optional persistence, cache and metrics.
// runs and recorder may be nil when persistence is disabled.
func NewScheduleService(
	planner schedulePlanner,
	runs scheduleRunReader,
	recorder runSink,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleServiceConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	return &ScheduleService{
		planner:   planner,
		runs:      runs,
		recorder:  recorder,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newRunStore(cfg.RunTTL),
		cacheTTL:  cfg.CacheTTL,
	}
}

// Generate builds a weekly schedule. The boolean reports a cache hit.
func (s *ScheduleService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	key, keyErr := scheduleCacheKey(req)
	if keyErr != nil {
		s.logger.Warn("schedule cache key unavailable", zap.Error(keyErr))
	}
	if keyErr == nil {
		var cached dto.GenerateScheduleResponse
		if s.cache.Get(ctx, key, &cached) {
			return &cached, true, nil
		}
	}

	start := time.Now()
	result, err := s.planner.CreateSchedule(ctx, req.Teachers, req.Classes, req.Classrooms)
	if err != nil {
		if scheduler.IsValidationError(err) {
			return nil, false, err
		}
		s.logger.Error("schedule generation failed", zap.Error(err))
		return nil, false, appErrors.FromError(err)
	}
	elapsed := time.Since(start)
	s.metrics.ObserveScheduleRun(result.Source, len(result.ScheduleItems), result.ShortfallSessions(), result.Conflicts, elapsed)

	resp := &dto.GenerateScheduleResponse{
		RunID:         uuid.NewString(),
		Source:        result.Source,
		Feasible:      result.Feasible(),
		ScheduleItems: result.ScheduleItems,
		Classrooms:    result.Classrooms,
		Warnings:      result.Warnings,
		Shortfalls:    result.Shortfalls,
		GeneratedAt:   time.Now().UTC(),
	}
	s.logger.Info("schedule generated",
		zap.String("run_id", resp.RunID),
		zap.String("source", string(resp.Source)),
		zap.Int("sessions", len(resp.ScheduleItems)),
		zap.Int("shortfalls", len(resp.Shortfalls)),
		zap.Duration("elapsed", elapsed),
	)

	s.store.Save(*resp)
	s.record(resp)
	if keyErr == nil {
		s.cache.Set(ctx, key, resp, s.cacheTTL)
	}
	return resp, false, nil
}

// Get returns a stored run from memory or, failing that, the repository.
func (s *ScheduleService) Get(ctx context.Context, id string) (*dto.GenerateScheduleResponse, error) {
	if run, ok := s.store.Get(id); ok {
		return &run, nil
	}
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found or expired")
	}

	stored, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	var resp dto.GenerateScheduleResponse
	if err := json.Unmarshal(stored.Payload, &resp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule run is corrupt")
	}
	return &resp, nil
}

// List returns recent run summaries, preferring the repository when configured.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRunSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run query")
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultRunListLimit
	}
	if s.runs == nil {
		return s.store.Recent(limit), nil
	}
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	if runs == nil {
		runs = []models.ScheduleRunSummary{}
	}
	return runs, nil
}

func (s *ScheduleService) record(resp *dto.GenerateScheduleResponse) {
	if s.recorder == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to encode schedule run", zap.String("run_id", resp.RunID), zap.Error(err))
		return
	}
	s.recorder.Record(models.ScheduleRun{
		ID:        resp.RunID,
		Source:    resp.Source,
		ItemCount: len(resp.ScheduleItems),
		Feasible:  resp.Feasible,
		Payload:   types.JSONText(payload),
		CreatedAt: resp.GeneratedAt,
	})
}

// scheduleCacheKey hashes the request. Nil and empty classroom lists differ:
// nil selects the default rooms.
func scheduleCacheKey(req dto.GenerateScheduleRequest) (string, error) {
	canonical := struct {
		Teachers     []models.Teacher   `json:"t"`
		Classes      []models.Class     `json:"c"`
		Classrooms   []models.Classroom `json:"r"`
		DefaultRooms bool               `json:"d"`
	}{req.Teachers, req.Classes, req.Classrooms, req.Classrooms == nil}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(raw)
	return "schedule:" + hex.EncodeToString(sum[:]), nil
}
