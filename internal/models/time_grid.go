package models

import "strings"

// Weekday names a day of the teaching week.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// ClosingTime ends the last session of the day.
const ClosingTime = "17:00"

// Weekdays is the fixed, ordered set of schedulable days.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// StartTimes is the fixed, ordered set of session start times. 12:00 is lunch.
var StartTimes = []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

// SlotsPerWeek is the size of the weekly grid.
var SlotsPerWeek = len(Weekdays) * len(StartTimes)

// Slot is a (day, start time) cell of the weekly grid.
type Slot struct {
	Day       Weekday
	StartTime string
}

// ParseWeekday canonicalises a weekday name; names outside the grid are rejected.
func ParseWeekday(raw string) (Weekday, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, day := range Weekdays {
		if strings.EqualFold(trimmed, string(day)) {
			return day, true
		}
	}
	return "", false
}

// StartTimeIndex returns the position of start in StartTimes, or -1.
func StartTimeIndex(start string) int {
	for i, candidate := range StartTimes {
		if candidate == start {
			return i
		}
	}
	return -1
}

// EndTimeFor returns the next slot's start, or ClosingTime after the last slot.
func EndTimeFor(start string) string {
	idx := StartTimeIndex(start)
	if idx < 0 || idx+1 >= len(StartTimes) {
		return ClosingTime
	}
	return StartTimes[idx+1]
}
