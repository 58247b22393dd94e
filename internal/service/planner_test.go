package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

func TestNewPlannerHeuristicOnly(t *testing.T) {
	planner := NewPlanner(config.OracleConfig{}, nil)
	req := sampleRequest()

	result, err := planner.CreateSchedule(context.Background(), req.Teachers, req.Classes, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SourceHeuristic, result.Source)
	assert.Len(t, result.ScheduleItems, 3)
}

func TestNewPlannerFallsBackWhenOracleFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	planner := NewPlanner(config.OracleConfig{
		Enabled:  true,
		Endpoint: server.URL,
		APIKey:   "key",
		Model:    "test-model",
		Timeout:  time.Second,
	}, nil)
	req := sampleRequest()

	result, err := planner.CreateSchedule(context.Background(), req.Teachers, req.Classes, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SourceHeuristicFallback, result.Source)
	assert.Len(t, result.ScheduleItems, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, models.WarningOracleFallback, result.Warnings[len(result.Warnings)-1].Type)
}
