package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func probeRequest() dto.GenerateScheduleRequest {
	return dto.GenerateScheduleRequest{
		Classes: []models.Class{{ID: "c1", Hours: 1}, {ID: "c2", Hours: 2}},
	}
}

func TestCheckInvariantsFlagsViolations(t *testing.T) {
	resp := &dto.GenerateScheduleResponse{
		ScheduleItems: []models.ScheduleItem{
			{ID: "a", ClassID: "c1", TeacherName: "Ana", ClassroomID: "r1", Day: "Monday", StartTime: "08:00"},
			{ID: "b", ClassID: "c1", TeacherName: "Ana", ClassroomID: "r2", Day: "Monday", StartTime: "08:00"},
			{ID: "c", ClassID: "c2", TeacherName: "Budi", ClassroomID: "r3", Day: "Saturday", StartTime: "12:00"},
		},
		Classrooms: []models.Classroom{{ID: "r1", UsagePercentage: 120}},
		Feasible:   true,
		Shortfalls: []models.Shortfall{{ClassID: "c2", Required: 2, Scheduled: 1}},
	}

	violations := checkInvariants(probeRequest(), resp)
	assert.Contains(t, violations, "teacher Ana double-booked on Monday at 08:00")
	assert.Contains(t, violations, `item c on unknown day "Saturday"`)
	assert.Contains(t, violations, "item c starts off grid at 12:00")
	assert.Contains(t, violations, "class c1 placed 2 times, needs 1")
	assert.Contains(t, violations, "room r1 usage 120% out of bounds")
	assert.Contains(t, violations, "feasible flag disagrees with shortfalls")
}

func TestProbeAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/schedules/generate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": dto.GenerateScheduleResponse{
				ScheduleItems: []models.ScheduleItem{{ID: "c1-Monday-08:00", ClassID: "c1", TeacherName: "Ana", ClassroomID: "r1", Day: "Monday", StartTime: "08:00"}},
				Feasible:      true,
			},
		})
	}))
	defer server.Close()

	res := probe(server.Client(), server.URL+"/api/v1/", "tok", probeCase{Name: "ok", Payload: probeRequest()})
	require.NoError(t, res.Error)
	assert.Empty(t, res.Violations)
	assert.Equal(t, http.StatusOK, res.Status)

	res = probe(server.Client(), server.URL+"/api/v1", "tok", probeCase{Name: "expects 400", Payload: probeRequest(), ExpectStatus: http.StatusBadRequest})
	assert.Equal(t, []string{"status 200, expected 400"}, res.Violations)
}
