package models

import "fmt"

// ScheduleItem is one placed session. Items are values; nothing edits them after creation.
type ScheduleItem struct {
	ID            string `json:"id"`
	ClassID       string `json:"classId"`
	ClassName     string `json:"className"`
	Subject       string `json:"subject"`
	TeacherName   string `json:"teacherName"`
	Day           string `json:"day"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	ClassroomID   string `json:"classroomId"`
	ClassroomName string `json:"classroomName"`
}

// ScheduleItemID derives the item identifier from class, day and start time.
func ScheduleItemID(classID string, day Weekday, startTime string) string {
	return fmt.Sprintf("%s-%s-%s", classID, day, startTime)
}

// NewScheduleItem builds an item for class taught by teacher in room at the slot.
func NewScheduleItem(class Class, teacher Teacher, room Classroom, slot Slot) ScheduleItem {
	return ScheduleItem{
		ID:            ScheduleItemID(class.ID, slot.Day, slot.StartTime),
		ClassID:       class.ID,
		ClassName:     class.Name,
		Subject:       class.Subject,
		TeacherName:   teacher.Name,
		Day:           string(slot.Day),
		StartTime:     slot.StartTime,
		EndTime:       EndTimeFor(slot.StartTime),
		ClassroomID:   room.ID,
		ClassroomName: room.Name,
	}
}

// ConflictType names the double-booked resource.
type ConflictType string

const (
	ConflictTeacher   ConflictType = "teacher"
	ConflictClassroom ConflictType = "classroom"
)

// ConflictGroup holds every item sharing one resource at one slot.
// Indexes are positions in the scanned item list, in original order.
type ConflictGroup struct {
	Type    ConflictType   `json:"type"`
	Key     string         `json:"key"`
	Day     string         `json:"day"`
	Start   string         `json:"startTime"`
	Items   []ScheduleItem `json:"items"`
	Indexes []int          `json:"-"`
}

// Shortfall records a class that received fewer sessions than its weekly hours.
type Shortfall struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className"`
	Required  int    `json:"required"`
	Scheduled int    `json:"scheduled"`
}

// WarningType categorises non-fatal pipeline notices.
type WarningType string

const (
	WarningConflictResolved WarningType = "CONFLICT_RESOLVED"
	WarningItemDiscarded    WarningType = "ITEM_DISCARDED"
	WarningOracleFallback   WarningType = "ORACLE_FALLBACK"
)

// Warning is an informational notice surfaced with a schedule; it never fails a run.
type Warning struct {
	Type    WarningType `json:"type"`
	Message string      `json:"message"`
	ItemIDs []string    `json:"itemIds,omitempty"`
}
