package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Generate packs classes into the weekly grid with a single greedy pass.
//
// Classes are taken in input order. Each gets at most one session per day, in
// the smallest fitting room that shares an open start time with its teacher,
// choosing the earliest such time. Classes without a known teacher or a
// fitting room are skipped. The result is conflict-free for distinct teacher
// and room IDs.
func Generate(teachers []models.Teacher, classes []models.Class, classrooms []models.Classroom) []models.ScheduleItem {
	teacherByID := indexTeachers(teachers)

	teacherSlots := make(map[string]slotSet, len(teacherByID))
	for id, t := range teacherByID {
		teacherSlots[id] = newSlotSet(availableDays(t))
	}
	roomSlots := make(map[string]slotSet, len(classrooms))
	for _, room := range classrooms {
		if _, ok := roomSlots[room.ID]; !ok {
			roomSlots[room.ID] = newSlotSet(models.Weekdays)
		}
	}

	items := make([]models.ScheduleItem, 0)
	for _, class := range classes {
		teacher, ok := teacherByID[class.TeacherID]
		if !ok {
			continue
		}
		rooms := candidateRooms(classrooms, class.Students)
		if len(rooms) == 0 {
			continue
		}

		tSlots := teacherSlots[teacher.ID]
		placed := 0
		for _, day := range models.Weekdays {
			if placed >= class.Hours {
				break
			}
			if !tSlots.hasAny(day) {
				continue
			}
			for _, room := range rooms {
				rSlots := roomSlots[room.ID]
				idx := earliestCommon(tSlots, rSlots, day)
				if idx < 0 {
					continue
				}
				slot := models.Slot{Day: day, StartTime: models.StartTimes[idx]}
				items = append(items, models.NewScheduleItem(class, teacher, room, slot))
				tSlots.take(day, idx)
				rSlots.take(day, idx)
				placed++
				break
			}
		}
	}
	return items
}

// candidateRooms returns rooms seating students, tightest first; equal capacities keep input order.
func candidateRooms(classrooms []models.Classroom, students int) []models.Classroom {
	rooms := make([]models.Classroom, 0, len(classrooms))
	for _, room := range classrooms {
		if room.Fits(students) {
			rooms = append(rooms, room)
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Capacity < rooms[j].Capacity
	})
	return rooms
}

// indexTeachers maps IDs to teachers; the first record wins on duplicate IDs.
func indexTeachers(teachers []models.Teacher) map[string]models.Teacher {
	index := make(map[string]models.Teacher, len(teachers))
	for _, t := range teachers {
		if _, exists := index[t.ID]; !exists {
			index[t.ID] = t
		}
	}
	return index
}

func indexClasses(classes []models.Class) map[string]models.Class {
	index := make(map[string]models.Class, len(classes))
	for _, c := range classes {
		if _, exists := index[c.ID]; !exists {
			index[c.ID] = c
		}
	}
	return index
}

func indexClassrooms(classrooms []models.Classroom) map[string]models.Classroom {
	index := make(map[string]models.Classroom, len(classrooms))
	for _, room := range classrooms {
		if _, exists := index[room.ID]; !exists {
			index[room.ID] = room
		}
	}
	return index
}
