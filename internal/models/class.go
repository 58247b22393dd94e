package models

// Class is a teaching unit that needs Hours weekly sessions with its assigned teacher.
type Class struct {
	ID        string `json:"id" validate:"required,max=64"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	TeacherID string `json:"teacherId"`
	Hours     int    `json:"hours"`
	Students  int    `json:"students"`
}
