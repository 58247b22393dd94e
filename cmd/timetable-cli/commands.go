package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

const formatJSON = "json"

var errShortfall = errors.New("schedule leaves classes short of their weekly hours")

type generateOptions struct {
	input    string
	format   string
	output   string
	oracle   bool
	strict   bool
	logLevel string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "timetable-cli",
		Short:         "Weekly classroom timetable generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newGenerateCmd(), newGridCmd(), newTokenCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{format: formatJSON, logLevel: "info"}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "build a schedule from a JSON file of teachers, classes and classrooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "input JSON file, - for stdin")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json, csv, xls or pdf")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.oracle, "oracle", false, "ask the configured oracle first, falling back to the heuristic")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when any class is short of its weekly hours")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level for diagnostics on stderr")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	logr, err := logger.NewCLI(opts.logLevel)
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	req, err := readRequest(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}

	oracleCfg := config.OracleConfig{}
	if opts.oracle {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cfg.Oracle.Enabled {
			logr.Warn("oracle requested but not configured; set ORACLE_ENABLED and ORACLE_API_KEY")
		}
		oracleCfg = cfg.Oracle
	}

	planner := service.NewPlanner(oracleCfg, logr)
	result, err := planner.CreateSchedule(cmd.Context(), req.Teachers, req.Classes, req.Classrooms)
	if err != nil {
		return err
	}
	report(logr, result)

	data, err := render(opts.format, result)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), opts.output, data); err != nil {
		return err
	}
	if opts.strict && len(result.Shortfalls) > 0 {
		return errShortfall
	}
	return nil
}

func readRequest(stdin io.Reader, path string) (dto.GenerateScheduleRequest, error) {
	var req dto.GenerateScheduleRequest
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decode input: %w", err)
	}
	return req, nil
}

func report(logr *zap.Logger, result *scheduler.Result) {
	for _, w := range result.Warnings {
		logr.Warn(w.Message, zap.String("type", string(w.Type)), zap.Strings("items", w.ItemIDs))
	}
	for _, s := range result.Shortfalls {
		logr.Warn("class short of weekly hours",
			zap.String("class", s.ClassName),
			zap.Int("required", s.Required),
			zap.Int("scheduled", s.Scheduled),
		)
	}
	logr.Info("schedule generated",
		zap.String("source", string(result.Source)),
		zap.Int("sessions", len(result.ScheduleItems)),
		zap.Bool("feasible", result.Feasible()),
	)
}

func render(format string, result *scheduler.Result) ([]byte, error) {
	if strings.EqualFold(strings.TrimSpace(format), formatJSON) {
		data, err := json.MarshalIndent(struct {
			ScheduleItems []models.ScheduleItem `json:"scheduleItems"`
			Classrooms    []models.Classroom    `json:"classrooms"`
			Source        models.ScheduleSource `json:"source"`
			Feasible      bool                  `json:"feasible"`
			Warnings      []models.Warning      `json:"warnings,omitempty"`
			Shortfalls    []models.Shortfall    `json:"shortfalls,omitempty"`
		}{result.ScheduleItems, result.Classrooms, result.Source, result.Feasible(), result.Warnings, result.Shortfalls}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	rendered, err := service.RenderSchedule(format, result.ScheduleItems)
	if err != nil {
		return nil, err
	}
	return rendered.Data, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func newGridCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "print the weekly time grid",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Days:  %s\n", joinDays(models.Weekdays))
			for _, start := range models.StartTimes {
				fmt.Fprintf(out, "%s-%s\n", start, models.EndTimeFor(start))
			}
			fmt.Fprintf(out, "%d slots per week, closing at %s\n", models.SlotsPerWeek, models.ClosingTime)
		},
	}
}

func joinDays(days []models.Weekday) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    = 24 * time.Hour
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an API access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			r := models.UserRole(strings.ToUpper(role))
			switch r {
			case models.RoleAdmin, models.RoleScheduler, models.RoleViewer:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := service.NewAuthService(cfg.JWT.Secret).IssueToken(userID, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleScheduler), "ADMIN, SCHEDULER or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", ttl, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
