package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// SolveTimetableRequest tunes one solve of the current catalog.
type SolveTimetableRequest struct {
	// AttemptBudget caps search trials (candidate placements tried), not backtracks.
	AttemptBudget int   `json:"attemptBudget" validate:"omitempty,min=1,max=50000000"`
	Seed          int64 `json:"seed"`
	Persist       bool  `json:"persist"`
}

// SolveTimetableResponse carries the engine result. RunID is set when the result was persisted.
type SolveTimetableResponse struct {
	RunID       string            `json:"runId,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	CacheHit    bool              `json:"cacheHit"`
	Result      *scheduler.Result `json:"result"`
}

// TimetableRunQuery filters stored runs.
type TimetableRunQuery struct {
	Status   string `form:"status" json:"status" validate:"omitempty,oneof=DRAFT ACCEPTED ARCHIVED"`
	Page     int    `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=100"`
}

// TimetableAssignmentView is a stored assignment with its block token.
type TimetableAssignmentView struct {
	CourseID  string `json:"courseId"`
	SubjectID string `json:"subjectId"`
	TeacherID string `json:"teacherId"`
	DayOfWeek int    `json:"dayOfWeek"`
	Period    int    `json:"period"`
	Block     string `json:"block"`
}

// TimetableRunResponse returns a stored run with its assignments and unmet units.
type TimetableRunResponse struct {
	Run         models.TimetableRun       `json:"run"`
	Assignments []TimetableAssignmentView `json:"assignments"`
	Unmet       []models.TimetableUnmet   `json:"unmet"`
}

// CourseScheduleQuery bounds a course schedule projection. Dates use YYYY-MM-DD.
type CourseScheduleQuery struct {
	From   string `form:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To     string `form:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// CourseScheduleSlot is one dated session of a course.
type CourseScheduleSlot struct {
	Date        string `json:"date"`
	Block       string `json:"block"`
	DayOfWeek   int    `json:"dayOfWeek"`
	Period      int    `json:"period"`
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
}

// CourseScheduleResponse lists the projected sessions of a course.
type CourseScheduleResponse struct {
	CourseID  string               `json:"courseId"`
	RunID     string               `json:"runId"`
	From      string               `json:"from"`
	To        string               `json:"to"`
	Slots     []CourseScheduleSlot `json:"slots"`
	Conflicts []scheduler.Conflict `json:"conflicts,omitempty"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TimetableJobStatus tracks an asynchronous solve.
type TimetableJobStatus string

const (
	TimetableJobQueued    TimetableJobStatus = "QUEUED"
	TimetableJobRunning   TimetableJobStatus = "RUNNING"
	TimetableJobSucceeded TimetableJobStatus = "SUCCEEDED"
	TimetableJobFailed    TimetableJobStatus = "FAILED"
)

// TimetableJobResponse describes an asynchronous solve.
type TimetableJobResponse struct {
	ID          string                  `json:"id"`
	Status      TimetableJobStatus      `json:"status"`
	SubmittedAt time.Time               `json:"submittedAt"`
	FinishedAt  *time.Time              `json:"finishedAt,omitempty"`
	Result      *SolveTimetableResponse `json:"result,omitempty"`
	Error       string                  `json:"error,omitempty"`
}
