package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Sanitize filters an untrusted candidate down to items that satisfy every
// per-item invariant, rebuilding survivors from the authoritative records so
// names, end times and IDs cannot drift. Double-booking is left to FindConflicts.
func Sanitize(in Input, items []models.ScheduleItem) ([]models.ScheduleItem, []models.Warning) {
	teachers := indexTeachers(in.Teachers)
	classes := indexClasses(in.Classes)
	rooms := indexClassrooms(in.Classrooms)

	kept := make([]models.ScheduleItem, 0, len(items))
	var warnings []models.Warning
	placed := make(map[string]int)

	discard := func(item models.ScheduleItem, reason string) {
		warnings = append(warnings, models.Warning{
			Type:    models.WarningItemDiscarded,
			Message: fmt.Sprintf("discarded %s: %s", describeItem(item), reason),
			ItemIDs: []string{item.ID},
		})
	}

	for _, item := range items {
		class, ok := classes[item.ClassID]
		if !ok {
			discard(item, "unknown class")
			continue
		}
		teacher, ok := teachers[class.TeacherID]
		if !ok {
			discard(item, "class teacher not found")
			continue
		}
		room, ok := rooms[item.ClassroomID]
		if !ok {
			discard(item, "unknown classroom")
			continue
		}
		day, ok := models.ParseWeekday(item.Day)
		if !ok {
			discard(item, fmt.Sprintf("day %q is not a teaching day", item.Day))
			continue
		}
		if models.StartTimeIndex(item.StartTime) < 0 {
			discard(item, fmt.Sprintf("start time %q is not on the grid", item.StartTime))
			continue
		}
		if !teacher.AvailableOn(day) {
			discard(item, fmt.Sprintf("%s is not available on %s", teacher.Name, day))
			continue
		}
		if !room.Fits(class.Students) {
			discard(item, fmt.Sprintf("%s seats %d, class has %d students", room.Name, room.Capacity, class.Students))
			continue
		}
		if placed[class.ID] >= class.Hours {
			discard(item, fmt.Sprintf("class already has %d weekly sessions", class.Hours))
			continue
		}

		placed[class.ID]++
		kept = append(kept, models.NewScheduleItem(class, teacher, room, models.Slot{Day: day, StartTime: item.StartTime}))
	}
	return kept, warnings
}

func describeItem(item models.ScheduleItem) string {
	if item.ID != "" {
		return item.ID
	}
	return fmt.Sprintf("%s on %s at %s", item.ClassID, item.Day, item.StartTime)
}
