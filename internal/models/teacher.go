package models

// Teacher is an instructor as supplied by the caller. The scheduler never mutates it.
type Teacher struct {
	ID           string   `json:"id" validate:"required,max=64"`
	Name         string   `json:"name"`
	Subjects     []string `json:"subjects" validate:"max=32"`
	Availability []string `json:"availability" validate:"max=7"`
}

// AvailableOn reports whether the teacher lists the grid weekday.
func (t Teacher) AvailableOn(day Weekday) bool {
	for _, raw := range t.Availability {
		if parsed, ok := ParseWeekday(raw); ok && parsed == day {
			return true
		}
	}
	return false
}
