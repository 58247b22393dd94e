package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

var (
	// ErrNoJSON means the response text holds no JSON object.
	ErrNoJSON = errors.New("no JSON object in response")
	// ErrMissingItems means the JSON object lacks a scheduleItems array.
	ErrMissingItems = errors.New("response JSON has no scheduleItems")
)

// UsageHint is a room usage figure suggested by the oracle.
type UsageHint struct {
	ID              string `json:"id"`
	UsagePercentage int    `json:"usagePercentage"`
}

// Payload is the schedule shape requested from the oracle.
type Payload struct {
	ScheduleItems  []models.ScheduleItem
	ClassroomUsage []UsageHint
}

type rawPayload struct {
	ScheduleItems  json.RawMessage `json:"scheduleItems"`
	ClassroomUsage json.RawMessage `json:"classroomUsage"`
}

// ExtractPayload decodes the first top-level JSON object found in text,
// ignoring any prose or code fences around it.
func ExtractPayload(text string) (*Payload, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, ErrNoJSON
	}

	var raw rawPayload
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err != nil {
		// stray braces in the prose can start the scan early; retry on the widest span
		end := strings.LastIndexByte(text, '}')
		if end <= start {
			return nil, fmt.Errorf("decode response JSON: %w", err)
		}
		raw = rawPayload{}
		if retryErr := json.Unmarshal([]byte(text[start:end+1]), &raw); retryErr != nil {
			return nil, fmt.Errorf("decode response JSON: %w", err)
		}
	}

	trimmed := strings.TrimSpace(string(raw.ScheduleItems))
	if trimmed == "" || trimmed == "null" {
		return nil, ErrMissingItems
	}
	items := make([]models.ScheduleItem, 0)
	if err := json.Unmarshal(raw.ScheduleItems, &items); err != nil {
		return nil, fmt.Errorf("decode scheduleItems: %w", err)
	}
	return &Payload{ScheduleItems: items, ClassroomUsage: parseUsageHints(raw.ClassroomUsage)}, nil
}

// parseUsageHints keeps whatever hints it can read. Hints are advisory, so a
// malformed entry is skipped rather than failing the whole payload.
func parseUsageHints(data json.RawMessage) []UsageHint {
	var entries []struct {
		ID              any `json:"id"`
		UsagePercentage any `json:"usagePercentage"`
	}
	if len(data) == 0 || json.Unmarshal(data, &entries) != nil {
		return nil
	}
	hints := make([]UsageHint, 0, len(entries))
	for _, e := range entries {
		id, ok := hintString(e.ID)
		if !ok {
			continue
		}
		pct, ok := hintNumber(e.UsagePercentage)
		if !ok {
			continue
		}
		hints = append(hints, UsageHint{ID: id, UsagePercentage: pct})
	}
	return hints
}

func hintString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func hintNumber(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(t, "%")), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}
