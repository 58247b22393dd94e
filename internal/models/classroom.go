package models

// Classroom is a bookable room. UsagePercentage is derived per run over the weekly grid.
type Classroom struct {
	ID              string `json:"id" validate:"required,max=64"`
	Name            string `json:"name" validate:"required"`
	Capacity        int    `json:"capacity" validate:"min=1"`
	Building        string `json:"building,omitempty"`
	Floor           *int   `json:"floor,omitempty" validate:"omitempty,min=0"`
	UsagePercentage int    `json:"usagePercentage"`
}

// Fits reports whether the room seats the given headcount.
func (c Classroom) Fits(students int) bool {
	return c.Capacity >= students
}
