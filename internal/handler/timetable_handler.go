package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableSolver interface {
	Solve(ctx context.Context, req dto.SolveTimetableRequest) (*dto.SolveTimetableResponse, error)
	Get(ctx context.Context, id string) (*dto.TimetableRunResponse, error)
	List(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error)
	Accept(ctx context.Context, id string) (*models.TimetableRun, error)
	ExportRunGrid(ctx context.Context, runID, courseID string) (*dto.ExportFile, error)
}

type timetableJobs interface {
	Submit(ctx context.Context, req dto.SolveTimetableRequest) (*dto.TimetableJobResponse, error)
	Status(id string) (*dto.TimetableJobResponse, error)
}

// TimetableHandler exposes solve, run and job endpoints.
type TimetableHandler struct {
	service timetableSolver
	jobs    timetableJobs
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableSolver, jobs timetableJobs) *TimetableHandler {
	return &TimetableHandler{service: svc, jobs: jobs}
}

// bindSolveRequest accepts an empty body as the zero request.
func bindSolveRequest(c *gin.Context) (dto.SolveTimetableRequest, error) {
	var req dto.SolveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload")
	}
	return req, nil
}

// Solve godoc
// @Summary Solve the weekly timetable
// @Description Runs the assignment engine over the current catalog. With persist=true the result is stored as a DRAFT run.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.SolveTimetableRequest false "Solve options"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/solve [post]
func (h *TimetableHandler) Solve(c *gin.Context) {
	req, err := bindSolveRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	internalmiddleware.SetCacheHit(c, result.CacheHit)
	response.JSON(c, http.StatusOK, result, nil, internalmiddleware.ExtractMeta(c))
}

// SubmitJob godoc
// @Summary Queue an asynchronous solve
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.SolveTimetableRequest false "Solve options"
// @Success 202 {object} response.Envelope
// @Router /timetables/jobs [post]
func (h *TimetableHandler) SubmitJob(c *gin.Context) {
	req, err := bindSolveRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+job.ID)
	response.Accepted(c, job)
}

// JobStatus godoc
// @Summary Get an asynchronous solve
// @Tags Timetable
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// List godoc
// @Summary List stored timetable runs
// @Tags Timetable
// @Produce json
// @Param status query string false "DRAFT, ACCEPTED or ARCHIVED"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	runs, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// Get godoc
// @Summary Get a stored timetable run
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	run, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Accept godoc
// @Summary Accept a draft timetable run
// @Description The previously accepted run is archived. Infeasible runs are rejected.
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetables/{id}/accept [post]
func (h *TimetableHandler) Accept(c *gin.Context) {
	run, err := h.service.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Grid godoc
// @Summary Download one course's week of a run as a PDF grid
// @Tags Timetable
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param courseId path string true "Course ID"
// @Success 200 {file} binary
// @Router /timetables/{id}/courses/{courseId}/grid [get]
func (h *TimetableHandler) Grid(c *gin.Context) {
	file, err := h.service.ExportRunGrid(c.Request.Context(), c.Param("id"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
