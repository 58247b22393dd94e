package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, bool, error)
	Get(ctx context.Context, id string) (*dto.GenerateScheduleResponse, error)
	List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRunSummary, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, runID string, req dto.ExportScheduleRequest) (*dto.ExportScheduleResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ScheduleDownload, error)
}

// ScheduleHandler exposes timetable generation, run lookup and export endpoints.
type ScheduleHandler struct {
	schedules scheduleGenerator
	exports   scheduleExporter
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedules scheduleGenerator, exports scheduleExporter) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, exports: exports}
}

// Generate godoc
// @Summary Generate a weekly timetable
// @Description Builds a conflict-free weekly schedule. Omitting classrooms uses the default room set; an empty list means no rooms.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Teachers, classes and optional classrooms"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule generation payload"))
		return
	}
	result, cacheHit, err := h.schedules.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "feasible", result.Feasible)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// ListRuns godoc
// @Summary List recent schedule runs
// @Tags Schedules
// @Produce json
// @Param limit query int false "Maximum runs to return (default 20)"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs [get]
func (h *ScheduleHandler) ListRuns(c *gin.Context) {
	var query dto.ScheduleRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run query"))
		return
	}
	runs, err := h.schedules.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, map[string]interface{}{"count": len(runs)})
}

// GetRun godoc
// @Summary Fetch a schedule run
// @Tags Schedules
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/runs/{id} [get]
func (h *ScheduleHandler) GetRun(c *gin.Context) {
	run, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, map[string]interface{}{"feasible": run.Feasible})
}

// Export godoc
// @Summary Export a schedule run
// @Description Renders the run as csv, xls or pdf and returns a signed download URL.
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportScheduleRequest true "Export format"
// @Success 201 {object} response.Envelope
// @Router /schedules/runs/{id}/export [post]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.exports.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported schedule
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ScheduleHandler) Download(c *gin.Context) {
	file, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// DefaultClassrooms godoc
// @Summary Default classroom set
// @Description Rooms used when a generation request omits classrooms.
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classrooms/defaults [get]
func (h *ScheduleHandler) DefaultClassrooms(c *gin.Context) {
	response.JSON(c, http.StatusOK, service.DefaultClassrooms())
}
