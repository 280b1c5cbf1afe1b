package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	solveReq  dto.SolveTimetableRequest
	listQuery dto.TimetableRunQuery
	acceptErr error
	schedule  *dto.CourseScheduleResponse
	query     dto.CourseScheduleQuery
}

func (m *timetableServiceMock) Solve(_ context.Context, req dto.SolveTimetableRequest) (*dto.SolveTimetableResponse, error) {
	m.solveReq = req
	return &dto.SolveTimetableResponse{Fingerprint: "fp", CacheHit: true, Result: &scheduler.Result{Status: scheduler.StatusSatisfied}}, nil
}

func (m *timetableServiceMock) Get(_ context.Context, id string) (*dto.TimetableRunResponse, error) {
	if id != "run-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
	}
	return &dto.TimetableRunResponse{Run: models.TimetableRun{ID: id}}, nil
}

func (m *timetableServiceMock) List(_ context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	m.listQuery = query
	return []models.TimetableRun{{ID: "run-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *timetableServiceMock) Accept(_ context.Context, id string) (*models.TimetableRun, error) {
	if m.acceptErr != nil {
		return nil, m.acceptErr
	}
	return &models.TimetableRun{ID: id, Status: models.TimetableRunStatusAccepted}, nil
}

func (m *timetableServiceMock) ExportRunGrid(_ context.Context, runID, courseID string) (*dto.ExportFile, error) {
	return &dto.ExportFile{Filename: "timetable_" + runID + "_" + courseID + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func (m *timetableServiceMock) CourseSchedule(_ context.Context, courseID string, query dto.CourseScheduleQuery) (*dto.CourseScheduleResponse, error) {
	m.query = query
	if m.schedule == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no accepted timetable")
	}
	return m.schedule, nil
}

func (m *timetableServiceMock) ExportCourseSchedule(_ context.Context, courseID string, query dto.CourseScheduleQuery) (*dto.ExportFile, error) {
	m.query = query
	return &dto.ExportFile{Filename: "schedule_" + courseID + ".csv", ContentType: "text/csv", Data: []byte("Date,Block,Subject,Teacher\n")}, nil
}

type jobServiceMock struct{}

func (jobServiceMock) Submit(_ context.Context, req dto.SolveTimetableRequest) (*dto.TimetableJobResponse, error) {
	return &dto.TimetableJobResponse{ID: "job-1", Status: dto.TimetableJobQueued}, nil
}

func (jobServiceMock) Status(id string) (*dto.TimetableJobResponse, error) {
	if id != "job-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found or expired")
	}
	return &dto.TimetableJobResponse{ID: id, Status: dto.TimetableJobSucceeded}, nil
}

func newTimetableRouter(svc *timetableServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(internalmiddleware.WithResponseMeta())
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Timetable:      NewTimetableHandler(svc, jobServiceMock{}),
		CourseSchedule: NewCourseScheduleHandler(svc),
	})
	return router
}

func serve(router *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTimetableHandlerSolve(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/timetables/solve", []byte(`{"attemptBudget":500,"seed":9,"persist":true}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, svc.solveReq.AttemptBudget)
	assert.Equal(t, int64(9), svc.solveReq.Seed)
	assert.True(t, svc.solveReq.Persist)

	var body struct {
		Data dto.SolveTimetableResponse `json:"data"`
		Meta map[string]interface{}     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, scheduler.StatusSatisfied, body.Data.Result.Status)
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestTimetableHandlerSolveEmptyBody(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/timetables/solve", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.SolveTimetableRequest{}, svc.solveReq)
}

func TestTimetableHandlerSolveMalformedBody(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{})
	rec := serve(router, http.MethodPost, "/api/v1/timetables/solve", []byte(`{"seed":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimetableHandlerJobs(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{})

	rec := serve(router, http.MethodPost, "/api/v1/timetables/jobs", []byte(`{}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/v1/timetables/jobs/job-1", rec.Header().Get("Location"))

	rec = serve(router, http.MethodGet, "/api/v1/timetables/jobs/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"SUCCEEDED"`)

	rec = serve(router, http.MethodGet, "/api/v1/timetables/jobs/job-9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimetableHandlerRuns(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/timetables?status=DRAFT&page=2&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.TimetableRunQuery{Status: "DRAFT", Page: 2, PageSize: 5}, svc.listQuery)
	assert.Contains(t, rec.Body.String(), `"total_count":1`)

	rec = serve(router, http.MethodGet, "/api/v1/timetables/run-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/timetables/run-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimetableHandlerAccept(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/timetables/run-1/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ACCEPTED"`)

	svc.acceptErr = appErrors.Clone(appErrors.ErrPreconditionFailed, "infeasible runs cannot be accepted")
	rec = serve(router, http.MethodPost, "/api/v1/timetables/run-1/accept", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestTimetableHandlerGrid(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{})
	rec := serve(router, http.MethodGet, "/api/v1/timetables/run-1/courses/c1/grid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable_run-1_c1.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestCourseScheduleHandler(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/courses/c1/schedule?from=2024-09-02&to=2024-09-06", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-06"}, svc.query)

	svc.schedule = &dto.CourseScheduleResponse{CourseID: "c1", Slots: []dto.CourseScheduleSlot{
		{Date: "2024-09-02", Block: "MON-1", SubjectName: "Mathematics", TeacherName: "Ana"},
	}}
	rec = serve(router, http.MethodGet, "/api/v1/courses/c1/schedule?from=2024-09-02&to=2024-09-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subjectName":"Mathematics"`)
	assert.Contains(t, rec.Body.String(), `"block":"MON-1"`)

	rec = serve(router, http.MethodGet, "/api/v1/courses/c1/schedule/export?from=2024-09-02&to=2024-09-06&format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", svc.query.Format)
	assert.Equal(t, `attachment; filename="schedule_c1.csv"`, rec.Header().Get("Content-Disposition"))
}
