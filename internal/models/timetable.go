package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableRunStatus represents lifecycle phases for stored solve results.
type TimetableRunStatus string

const (
	TimetableRunStatusDraft    TimetableRunStatus = "DRAFT"
	TimetableRunStatusAccepted TimetableRunStatus = "ACCEPTED"
	TimetableRunStatusArchived TimetableRunStatus = "ARCHIVED"
)

// TimetableRun is one persisted solve. Outcome holds the engine status.
type TimetableRun struct {
	ID          string             `db:"id" json:"id"`
	Status      TimetableRunStatus `db:"status" json:"status"`
	Outcome     string             `db:"outcome" json:"outcome"`
	Fingerprint string             `db:"fingerprint" json:"fingerprint"`
	Stats       types.JSONText     `db:"stats" json:"stats"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// TimetableAssignment is one placed weekly session of a run.
type TimetableAssignment struct {
	ID        string `db:"id" json:"id"`
	RunID     string `db:"run_id" json:"run_id"`
	CourseID  string `db:"course_id" json:"course_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	Period    int    `db:"period" json:"period"`
}

// TimetableUnmet is one session unit a run could not place.
type TimetableUnmet struct {
	ID        string `db:"id" json:"id"`
	RunID     string `db:"run_id" json:"run_id"`
	CourseID  string `db:"course_id" json:"course_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	Unit      int    `db:"unit" json:"unit"`
	Reason    string `db:"reason" json:"reason"`
}

// TimetableRunFilter narrows run listings.
type TimetableRunFilter struct {
	Status   TimetableRunStatus
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
