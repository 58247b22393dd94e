package service

import "github.com/noah-isme/sma-timetable-api/internal/models"

func intPtr(v int) *int { return &v }

// DefaultClassrooms is the room set used when a request omits classrooms.
func DefaultClassrooms() []models.Classroom {
	return []models.Classroom{
		{ID: "1", Name: "Room 101", Capacity: 30, Building: "Main Building", Floor: intPtr(1)},
		{ID: "2", Name: "Room 102", Capacity: 25, Building: "Main Building", Floor: intPtr(1)},
		{ID: "3", Name: "Room 201", Capacity: 40, Building: "Main Building", Floor: intPtr(2)},
		{ID: "4", Name: "Room 202", Capacity: 35, Building: "Main Building", Floor: intPtr(2)},
		{ID: "5", Name: "Lab 301", Capacity: 20, Building: "Science Wing", Floor: intPtr(3)},
		{ID: "6", Name: "Lecture Hall", Capacity: 100, Building: "Main Building", Floor: intPtr(1)},
	}
}
