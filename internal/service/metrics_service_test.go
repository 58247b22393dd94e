package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestMetricsServiceObserveScheduleRun(t *testing.T) {
	m := NewMetricsService()
	conflicts := []models.ConflictGroup{{Type: models.ConflictTeacher}, {Type: models.ConflictClassroom}, {Type: models.ConflictTeacher}}

	m.ObserveScheduleRun(models.SourceHeuristicFallback, 12, 3, conflicts, 20*time.Millisecond)
	m.ObserveScheduleRun(models.SourceHeuristic, 4, 0, nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("heuristic_fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("heuristic")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflictsResolved.WithLabelValues("teacher")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.shortfallSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleFallbacks))

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.ScheduleRuns)
	assert.Equal(t, uint64(1), snap.OracleFallbacks)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/schedules", http.StatusCreated, 5*time.Millisecond)
	m.ObserveScheduleRun(models.SourceOracle, 10, 0, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "scheduler_generations_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveScheduleRun(models.SourceOracle, 1, 0, nil, time.Millisecond)
	assert.Zero(t, m.Snapshot().ScheduleRuns)
}
