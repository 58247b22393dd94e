package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// TextGenerator answers a prompt with free text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source asks a TextGenerator for a candidate schedule.
type Source struct {
	generator TextGenerator
	logger    *zap.Logger
}

// NewSource wraps generator as a candidate source.
func NewSource(generator TextGenerator, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{generator: generator, logger: logger}
}

// Candidate implements scheduler.CandidateSource.
func (s *Source) Candidate(ctx context.Context, in scheduler.Input) (scheduler.Candidate, error) {
	prompt, err := BuildPrompt(in)
	if err != nil {
		return scheduler.Candidate{}, err
	}
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return scheduler.Candidate{}, err
	}
	payload, err := ExtractPayload(text)
	if err != nil {
		return scheduler.Candidate{}, fmt.Errorf("parse oracle response: %w", err)
	}

	hints := make(map[string]int, len(payload.ClassroomUsage))
	for _, hint := range payload.ClassroomUsage {
		hints[hint.ID] = hint.UsagePercentage
	}
	s.logger.Debug("oracle candidate received", zap.Int("items", len(payload.ScheduleItems)))
	return scheduler.Candidate{
		Items:      payload.ScheduleItems,
		UsageHints: hints,
		Source:     models.SourceOracle,
	}, nil
}
