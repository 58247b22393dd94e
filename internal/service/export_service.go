package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// Export formats accepted by RenderSchedule.
const (
	FormatCSV = "csv"
	FormatXLS = "xls"
	FormatPDF = "pdf"
)

const scheduleTitle = "Weekly Schedule"

var scheduleHeaders = []string{"Class Name", "Subject", "Teacher", "Day", "Start Time", "End Time", "Classroom"}

var contentTypes = map[string]string{
	FormatCSV: "text/csv",
	FormatXLS: "application/vnd.ms-excel",
	FormatPDF: "application/pdf",
}

type runReader interface {
	Get(ctx context.Context, id string) (*dto.GenerateScheduleResponse, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// RenderedSchedule is a schedule encoded in one export format.
type RenderedSchedule struct {
	Format      string
	Extension   string
	ContentType string
	Data        []byte
}

// ScheduleDataset flattens items into the export table.
func ScheduleDataset(items []models.ScheduleItem) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"Class Name": item.ClassName,
			"Subject":    item.Subject,
			"Teacher":    item.TeacherName,
			"Day":        item.Day,
			"Start Time": item.StartTime,
			"End Time":   item.EndTime,
			"Classroom":  item.ClassroomName,
		})
	}
	return export.Dataset{Headers: scheduleHeaders, Rows: rows}
}

// RenderSchedule encodes items as csv, xls (tab separated) or pdf.
func RenderSchedule(format string, items []models.ScheduleItem) (*RenderedSchedule, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	dataset := ScheduleDataset(items)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = export.NewCSVExporter().Render(dataset)
	case FormatXLS:
		data, err = export.NewTSVExporter().Render(dataset)
	case FormatPDF:
		data, err = export.NewPDFExporter().Render(dataset, scheduleTitle)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	return &RenderedSchedule{Format: format, Extension: "." + format, ContentType: contentTypes[format], Data: data}, nil
}

// ScheduleDownload is a resolved export ready to stream.
type ScheduleDownload struct {
	Filename    string
	ContentType string
	Data        []byte
	ExpiresAt   time.Time
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	CleanupInterval time.Duration
}

// ExportService renders stored runs to files and hands out signed download links.
type ExportService struct {
	runs    runReader
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(runs runReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{runs: runs, storage: files, signer: signer, logger: logger, cfg: cfg}
}

// Export renders run id in the requested format and returns a signed URL for it.
func (s *ExportService) Export(ctx context.Context, runID string, req dto.ExportScheduleRequest) (*dto.ExportScheduleResponse, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	rendered, err := RenderSchedule(req.Format, run.ScheduleItems)
	if err != nil {
		return nil, err
	}

	relPath := path.Join("schedules", run.RunID+rendered.Extension)
	if _, err := s.storage.Save(relPath, rendered.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(run.RunID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	s.logger.Info("schedule exported", zap.String("run_id", run.RunID), zap.String("format", rendered.Format), zap.Int("bytes", len(rendered.Data)))
	return &dto.ExportScheduleResponse{
		RunID:     run.RunID,
		Format:    rendered.Format,
		Filename:  path.Base(relPath),
		URL:       strings.TrimRight(s.cfg.APIPrefix, "/") + "/exports/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates token and loads the file it points at.
func (s *ExportService) ResolveDownload(_ context.Context, token string) (*ScheduleDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	data, err := s.storage.Read(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	ext := strings.TrimPrefix(path.Ext(relPath), ".")
	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}
	return &ScheduleDownload{
		Filename:    path.Base(relPath),
		ContentType: contentType,
		Data:        data,
		ExpiresAt:   expiresAt,
	}, nil
}

// StartCleanup periodically removes export files older than the link lifetime.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Cleanup removes expired export files once.
func (s *ExportService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.signer.TTL())
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup failed", "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("export cleanup removed files", "count", len(removed))
	}
}
