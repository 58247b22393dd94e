package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

const outputShape = `Return a single JSON object with two fields:
"scheduleItems": an array of objects with string fields id, classId, className, subject,
teacherName, day, startTime, endTime, classroomId, classroomName.
"classroomUsage": an array of {"id": string, "usagePercentage": integer}.`

// BuildPrompt renders the scheduling request as a single text prompt.
func BuildPrompt(in scheduler.Input) (string, error) {
	var b strings.Builder
	b.WriteString("Build a weekly classroom timetable from the data below.\n\n")

	sections := []struct {
		title string
		value any
	}{
		{"TEACHERS", in.Teachers},
		{"CLASSES", in.Classes},
		{"CLASSROOMS", in.Classrooms},
	}
	for _, section := range sections {
		encoded, err := json.MarshalIndent(section.value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", strings.ToLower(section.title), err)
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", section.title, encoded)
	}

	days := make([]string, 0, len(models.Weekdays))
	for _, d := range models.Weekdays {
		days = append(days, string(d))
	}
	fmt.Fprintf(&b, "Days: %s. Start times: %s. Each session lasts until the next start time, the last one until %s.\n",
		strings.Join(days, ", "), strings.Join(models.StartTimes, ", "), models.ClosingTime)
	b.WriteString("Rules: a teacher or classroom holds at most one session per slot; only schedule a teacher on their available days; ")
	b.WriteString("use classrooms whose capacity fits the class; give each class exactly its weekly hours, at most one per day.\n\n")
	b.WriteString(outputShape)
	b.WriteString("\n")
	return b.String(), nil
}
