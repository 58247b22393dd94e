package scheduler

import "github.com/noah-isme/sma-timetable-api/internal/models"

// slotSet tracks the open start times of one teacher or room for a single run.
type slotSet map[models.Weekday][]bool

func newSlotSet(days []models.Weekday) slotSet {
	set := make(slotSet, len(days))
	for _, day := range days {
		open := make([]bool, len(models.StartTimes))
		for i := range open {
			open[i] = true
		}
		set[day] = open
	}
	return set
}

func (s slotSet) hasAny(day models.Weekday) bool {
	for _, open := range s[day] {
		if open {
			return true
		}
	}
	return false
}

func (s slotSet) take(day models.Weekday, idx int) {
	if open, ok := s[day]; ok && idx >= 0 && idx < len(open) {
		open[idx] = false
	}
}

// earliestCommon returns the first start time index open in both sets, or -1.
func earliestCommon(a, b slotSet, day models.Weekday) int {
	left, right := a[day], b[day]
	for i := 0; i < len(left) && i < len(right); i++ {
		if left[i] && right[i] {
			return i
		}
	}
	return -1
}

func availableDays(t models.Teacher) []models.Weekday {
	days := make([]models.Weekday, 0, len(models.Weekdays))
	for _, day := range models.Weekdays {
		if t.AvailableOn(day) {
			days = append(days, day)
		}
	}
	return days
}
