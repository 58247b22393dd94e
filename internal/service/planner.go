package service

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/oracle"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

// NewPlanner builds the scheduling pipeline shared by the API and the CLI.
// With the oracle enabled, candidates come from the text generation API and
// fall back to the greedy generator on error or timeout.
func NewPlanner(cfg config.OracleConfig, logger *zap.Logger) *scheduler.Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := scheduler.Options{DefaultClassrooms: DefaultClassrooms(), Logger: logger}
	if cfg.Enabled {
		client := oracle.NewClient(oracle.ClientConfig{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			HTTPClient: &http.Client{},
			Logger:     logger.Named("oracle"),
		})
		opts.Source = scheduler.NewFallbackSource(oracle.NewSource(client, logger), cfg.Timeout, logger)
		logger.Info("oracle candidate source enabled", zap.String("model", cfg.Model), zap.Duration("timeout", cfg.Timeout))
	}
	return scheduler.NewPlanner(opts)
}
