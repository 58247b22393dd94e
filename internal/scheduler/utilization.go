package scheduler

import (
	"math"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Annotate returns copies of classrooms with UsagePercentage set to the share
// of the weekly grid their items occupy.
func Annotate(classrooms []models.Classroom, items []models.ScheduleItem) []models.Classroom {
	counts := make(map[string]int, len(classrooms))
	for _, item := range items {
		counts[item.ClassroomID]++
	}

	annotated := make([]models.Classroom, 0, len(classrooms))
	for _, room := range classrooms {
		room.UsagePercentage = usagePercent(counts[room.ID])
		annotated = append(annotated, room)
	}
	return annotated
}

func usagePercent(sessions int) int {
	pct := int(math.Round(100 * float64(sessions) / float64(models.SlotsPerWeek)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
