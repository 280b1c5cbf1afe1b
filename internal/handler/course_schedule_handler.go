package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type courseScheduleProvider interface {
	CourseSchedule(ctx context.Context, courseID string, query dto.CourseScheduleQuery) (*dto.CourseScheduleResponse, error)
	ExportCourseSchedule(ctx context.Context, courseID string, query dto.CourseScheduleQuery) (*dto.ExportFile, error)
}

// CourseScheduleHandler serves dated course schedules projected from the accepted timetable.
type CourseScheduleHandler struct {
	service courseScheduleProvider
}

// NewCourseScheduleHandler constructs the handler.
func NewCourseScheduleHandler(svc courseScheduleProvider) *CourseScheduleHandler {
	return &CourseScheduleHandler{service: svc}
}

// Schedule godoc
// @Summary Course schedule for a date range
// @Description Projects the accepted weekly timetable of the course onto every date in [from, to], skipping holidays.
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{id}/schedule [get]
func (h *CourseScheduleHandler) Schedule(c *gin.Context) {
	var query dto.CourseScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	schedule, err := h.service.CourseSchedule(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Export godoc
// @Summary Export a course schedule
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /courses/{id}/schedule/export [get]
func (h *CourseScheduleHandler) Export(c *gin.Context) {
	var query dto.CourseScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.service.ExportCourseSchedule(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
