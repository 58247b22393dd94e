package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Validate rejects malformed teacher and class input. Each record is checked
// in full before the next one, and the first problem found is returned.
func Validate(teachers []models.Teacher, classes []models.Class) error {
	if len(teachers) == 0 {
		return invalid("No teachers provided")
	}
	for _, t := range teachers {
		if strings.TrimSpace(t.Name) == "" {
			return invalid("All teachers must have names")
		}
		if !hasSubjects(t.Subjects) {
			return invalid(fmt.Sprintf("Teacher %s must have at least one valid subject", t.Name))
		}
		if len(t.Availability) == 0 {
			return invalid(fmt.Sprintf("Teacher %s has no available days", t.Name))
		}
	}

	if len(classes) == 0 {
		return invalid("No classes provided")
	}
	known := make(map[string]struct{}, len(teachers))
	for _, t := range teachers {
		known[t.ID] = struct{}{}
	}
	for _, c := range classes {
		if strings.TrimSpace(c.Name) == "" {
			return invalid("All classes must have names")
		}
		if strings.TrimSpace(c.Subject) == "" {
			return invalid("All classes must have subjects")
		}
		if c.Hours <= 0 {
			return invalid(fmt.Sprintf("Class %s has invalid hours: %d", c.Name, c.Hours))
		}
		if c.Students <= 0 {
			return invalid(fmt.Sprintf("Class %s has invalid student count: %d", c.Name, c.Students))
		}
		if _, ok := known[c.TeacherID]; !ok {
			return invalid(fmt.Sprintf("Class %s references non-existent teacher ID: %s", c.Name, c.TeacherID))
		}
	}
	return nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == appErrors.ErrValidation.Code
}

func invalid(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func hasSubjects(subjects []string) bool {
	if len(subjects) == 0 {
		return false
	}
	for _, s := range subjects {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}
