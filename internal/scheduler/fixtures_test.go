package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

var allDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func teacher(id, name string, days ...string) models.Teacher {
	if len(days) == 0 {
		days = allDays
	}
	return models.Teacher{ID: id, Name: name, Subjects: []string{"Math"}, Availability: days}
}

func class(id, teacherID string, hours, students int) models.Class {
	return models.Class{ID: id, Name: "Class " + id, Subject: "Math", TeacherID: teacherID, Hours: hours, Students: students}
}

func room(id string, capacity int) models.Classroom {
	return models.Classroom{ID: id, Name: "Room " + id, Capacity: capacity}
}

// randomInput builds a deterministic but irregular workload.
func randomInput(seed int64) Input {
	rng := rand.New(rand.NewSource(seed))
	var in Input
	nTeachers, nClasses, nRooms := 2+rng.Intn(5), 3+rng.Intn(12), 1+rng.Intn(4)
	for i := 0; i < nTeachers; i++ {
		days := make([]string, 0, len(allDays))
		for _, d := range allDays {
			if rng.Intn(3) > 0 {
				days = append(days, d)
			}
		}
		if len(days) == 0 {
			days = []string{"Wednesday"}
		}
		in.Teachers = append(in.Teachers, teacher(fmt.Sprintf("t%d", i), fmt.Sprintf("Teacher %d", i), days...))
	}
	for i := 0; i < nClasses; i++ {
		tid := in.Teachers[rng.Intn(len(in.Teachers))].ID
		in.Classes = append(in.Classes, class(fmt.Sprintf("c%d", i), tid, 1+rng.Intn(6), 5+rng.Intn(60)))
	}
	for i := 0; i < nRooms; i++ {
		in.Classrooms = append(in.Classrooms, room(fmt.Sprintf("r%d", i), 10+rng.Intn(50)))
	}
	return in
}

// assertScheduleInvariants checks every per-schedule guarantee the pipeline makes.
func assertScheduleInvariants(t *testing.T, in Input, items []models.ScheduleItem) {
	t.Helper()
	teachers := indexTeachers(in.Teachers)
	classes := indexClasses(in.Classes)
	rooms := indexClassrooms(in.Classrooms)

	teacherBusy := map[string]bool{}
	roomBusy := map[string]bool{}
	perClass := map[string]int{}
	for _, item := range items {
		tk := item.TeacherName + "|" + item.Day + "|" + item.StartTime
		rk := item.ClassroomID + "|" + item.Day + "|" + item.StartTime
		assert.False(t, teacherBusy[tk], "teacher double-booked: %s", tk)
		assert.False(t, roomBusy[rk], "room double-booked: %s", rk)
		teacherBusy[tk] = true
		roomBusy[rk] = true

		c, ok := classes[item.ClassID]
		if !assert.True(t, ok, "unknown class %s", item.ClassID) {
			continue
		}
		day, ok := models.ParseWeekday(item.Day)
		assert.True(t, ok)
		assert.True(t, teachers[c.TeacherID].AvailableOn(day), "teacher unavailable on %s", item.Day)
		assert.GreaterOrEqual(t, rooms[item.ClassroomID].Capacity, c.Students)
		assert.Equal(t, models.EndTimeFor(item.StartTime), item.EndTime)
		perClass[item.ClassID]++
	}
	for id, n := range perClass {
		assert.LessOrEqual(t, n, classes[id].Hours, "class %s over-scheduled", id)
	}
}

type stubSource struct {
	candidate Candidate
	err       error
	block     bool
	calls     int
}

func (s *stubSource) Candidate(ctx context.Context, _ Input) (Candidate, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return Candidate{}, ctx.Err()
	}
	return s.candidate, s.err
}
