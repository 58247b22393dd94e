package scheduler

import "github.com/noah-isme/sma-timetable-api/internal/models"

type conflictKey struct {
	owner string
	day   string
	start string
}

// FindConflicts groups items that double-book a teacher (by name) or a room
// (by ID) at the same day and start time. Teacher groups come first, then
// room groups, each ordered by first appearance.
func FindConflicts(items []models.ScheduleItem) []models.ConflictGroup {
	conflicts := groupBy(items, models.ConflictTeacher, func(item models.ScheduleItem) string {
		return item.TeacherName
	})
	return append(conflicts, groupBy(items, models.ConflictClassroom, func(item models.ScheduleItem) string {
		return item.ClassroomID
	})...)
}

func groupBy(items []models.ScheduleItem, kind models.ConflictType, owner func(models.ScheduleItem) string) []models.ConflictGroup {
	order := make([]conflictKey, 0)
	positions := make(map[conflictKey][]int)
	for i, item := range items {
		key := conflictKey{owner: owner(item), day: item.Day, start: item.StartTime}
		if _, seen := positions[key]; !seen {
			order = append(order, key)
		}
		positions[key] = append(positions[key], i)
	}

	var groups []models.ConflictGroup
	for _, key := range order {
		idx := positions[key]
		if len(idx) < 2 {
			continue
		}
		group := models.ConflictGroup{
			Type:    kind,
			Key:     key.owner,
			Day:     key.day,
			Start:   key.start,
			Items:   make([]models.ScheduleItem, 0, len(idx)),
			Indexes: idx,
		}
		for _, i := range idx {
			group.Items = append(group.Items, items[i])
		}
		groups = append(groups, group)
	}
	return groups
}

// Resolve keeps the first item of every conflict group and drops the rest,
// preserving the original order of survivors. Groups must come from
// FindConflicts over the same slice; out-of-range positions are ignored.
func Resolve(items []models.ScheduleItem, conflicts []models.ConflictGroup) []models.ScheduleItem {
	drop := make(map[int]struct{})
	for _, group := range conflicts {
		for _, idx := range laterPositions(group.Indexes) {
			drop[idx] = struct{}{}
		}
	}

	kept := make([]models.ScheduleItem, 0, len(items))
	for i, item := range items {
		if _, removed := drop[i]; removed {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// laterPositions returns every position except the smallest.
func laterPositions(indexes []int) []int {
	if len(indexes) < 2 {
		return nil
	}
	first := 0
	for i, idx := range indexes {
		if idx < indexes[first] {
			first = i
		}
	}
	later := make([]int, 0, len(indexes)-1)
	for i, idx := range indexes {
		if i != first {
			later = append(later, idx)
		}
	}
	return later
}
