package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const timetableRunColumns = "id, status, outcome, fingerprint, stats, created_at, updated_at"

// TimetableRepository persists solve runs with their assignments and unmet sessions.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BeginTxx starts a transaction on the underlying database.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// CreateRun inserts a run, defaulting id, status and timestamps.
func (r *TimetableRepository) CreateRun(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil {
		return fmt.Errorf("timetable run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.TimetableRunStatusDraft
	}
	if len(run.Stats) == 0 {
		run.Stats = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	const query = `
INSERT INTO timetable_runs (id, status, outcome, fingerprint, stats, created_at, updated_at)
VALUES (:id, :status, :outcome, :fingerprint, :stats, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}
	return nil
}

// InsertAssignments stores the assignments of a run.
func (r *TimetableRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetableAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	target := r.exec(exec)
	const query = `
INSERT INTO timetable_assignments (id, run_id, course_id, subject_id, teacher_id, day_of_week, period)
VALUES (:id, :run_id, :course_id, :subject_id, :teacher_id, :day_of_week, :period)`
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
			return fmt.Errorf("insert timetable assignment: %w", err)
		}
	}
	return nil
}

// InsertUnmet stores the unmet session units of a run.
func (r *TimetableRepository) InsertUnmet(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetableUnmet) error {
	if len(rows) == 0 {
		return nil
	}
	target := r.exec(exec)
	const query = `
INSERT INTO timetable_unmet (id, run_id, course_id, subject_id, unit, reason)
VALUES (:id, :run_id, :course_id, :subject_id, :unit, :reason)`
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
			return fmt.Errorf("insert timetable unmet: %w", err)
		}
	}
	return nil
}

// FindRun loads a run by its identifier.
func (r *TimetableRepository) FindRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_runs WHERE id = $1", timetableRunColumns)
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindAccepted returns the currently accepted run.
func (r *TimetableRepository) FindAccepted(ctx context.Context) (*models.TimetableRun, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_runs WHERE status = $1 ORDER BY updated_at DESC LIMIT 1", timetableRunColumns)
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, models.TimetableRunStatusAccepted); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs matching the filter, newest first, with the total count.
func (r *TimetableRepository) ListRuns(ctx context.Context, filter models.TimetableRunFilter) ([]models.TimetableRun, int, error) {
	base := "FROM timetable_runs WHERE 1=1"
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", timetableRunColumns, base, size, offset)
	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable runs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable runs: %w", err)
	}
	return runs, total, nil
}

// ListAssignments returns the assignments of a run ordered by course, day and period.
func (r *TimetableRepository) ListAssignments(ctx context.Context, runID string) ([]models.TimetableAssignment, error) {
	const query = `SELECT id, run_id, course_id, subject_id, teacher_id, day_of_week, period
FROM timetable_assignments WHERE run_id = $1 ORDER BY course_id ASC, day_of_week ASC, period ASC`
	var rows []models.TimetableAssignment
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list timetable assignments: %w", err)
	}
	return rows, nil
}

// ListCourseAssignments returns one course's assignments within a run.
func (r *TimetableRepository) ListCourseAssignments(ctx context.Context, runID, courseID string) ([]models.TimetableAssignment, error) {
	const query = `SELECT id, run_id, course_id, subject_id, teacher_id, day_of_week, period
FROM timetable_assignments WHERE run_id = $1 AND course_id = $2 ORDER BY day_of_week ASC, period ASC`
	var rows []models.TimetableAssignment
	if err := r.db.SelectContext(ctx, &rows, query, runID, courseID); err != nil {
		return nil, fmt.Errorf("list course timetable assignments: %w", err)
	}
	return rows, nil
}

// ListUnmet returns the unmet units of a run.
func (r *TimetableRepository) ListUnmet(ctx context.Context, runID string) ([]models.TimetableUnmet, error) {
	const query = `SELECT id, run_id, course_id, subject_id, unit, reason
FROM timetable_unmet WHERE run_id = $1 ORDER BY course_id ASC, subject_id ASC, unit ASC`
	var rows []models.TimetableUnmet
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list timetable unmet: %w", err)
	}
	return rows, nil
}

// UpdateStatus changes the status of a run.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableRunStatus) error {
	const query = `UPDATE timetable_runs SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update timetable run status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchiveAccepted moves every accepted run to ARCHIVED and returns how many were changed.
func (r *TimetableRepository) ArchiveAccepted(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	const query = `UPDATE timetable_runs SET status = $1, updated_at = $2 WHERE status = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, models.TimetableRunStatusArchived, time.Now().UTC(), models.TimetableRunStatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("archive accepted timetable runs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive accepted rows affected: %w", err)
	}
	return affected, nil
}
