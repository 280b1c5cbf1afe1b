package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableCourseReader interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type timetableSubjectReader interface {
	ListByLevel(ctx context.Context, level string) ([]models.Subject, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type timetableTeacherReader interface {
	List(ctx context.Context) ([]models.TeacherProfile, error)
}

type timetableHolidayReader interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Holiday, error)
}

type timetableConfigReader interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
}

type timetableRunStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	CreateRun(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetableAssignment) error
	InsertUnmet(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetableUnmet) error
	FindRun(ctx context.Context, id string) (*models.TimetableRun, error)
	FindAccepted(ctx context.Context) (*models.TimetableRun, error)
	ListRuns(ctx context.Context, filter models.TimetableRunFilter) ([]models.TimetableRun, int, error)
	ListAssignments(ctx context.Context, runID string) ([]models.TimetableAssignment, error)
	ListCourseAssignments(ctx context.Context, runID, courseID string) ([]models.TimetableAssignment, error)
	ListUnmet(ctx context.Context, runID string) ([]models.TimetableUnmet, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableRunStatus) error
	ArchiveAccepted(ctx context.Context, exec sqlx.ExtContext) (int64, error)
}

type timetableSolver interface {
	SolveParallel(ctx context.Context, snap scheduler.Snapshot, opts scheduler.Options) (*scheduler.Result, error)
}

// TimetableRepositories groups the persistence collaborators of TimetableService.
type TimetableRepositories struct {
	Courses  timetableCourseReader
	Subjects timetableSubjectReader
	Teachers timetableTeacherReader
	Holidays timetableHolidayReader
	Configs  timetableConfigReader
	Runs     timetableRunStore
}

// TimetableService loads catalog snapshots, runs the engine and manages stored runs.
type TimetableService struct {
	repos     TimetableRepositories
	solver    timetableSolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.SchedulerConfig
}

// NewTimetableService wires the timetable service.
func NewTimetableService(
	repos TimetableRepositories,
	solver timetableSolver,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.SchedulerConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxProjectionDays <= 0 {
		cfg.MaxProjectionDays = 370
	}
	return &TimetableService{
		repos:     repos,
		solver:    solver,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// LoadSnapshot reads courses, the subjects of their levels, teachers and the grid.
func (s *TimetableService) LoadSnapshot(ctx context.Context) (scheduler.Snapshot, error) {
	courses, err := s.repos.Courses.List(ctx)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	levels := make([]string, 0)
	seen := make(map[string]bool)
	for _, course := range courses {
		if !seen[course.Level] {
			seen[course.Level] = true
			levels = append(levels, course.Level)
		}
	}
	sort.Strings(levels)

	var subjects []models.Subject
	for _, level := range levels {
		items, err := s.repos.Subjects.ListByLevel(ctx, level)
		if err != nil {
			return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
		}
		subjects = append(subjects, items...)
	}

	teachers, err := s.repos.Teachers.List(ctx)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	grid, err := s.grid(ctx)
	if err != nil {
		return scheduler.Snapshot{}, err
	}
	return toSnapshot(grid, courses, subjects, teachers), nil
}

func (s *TimetableService) grid(ctx context.Context) (scheduler.Grid, error) {
	var overrides []models.Configuration
	if s.repos.Configs != nil {
		items, err := s.repos.Configs.ListByKeys(ctx, []string{models.ConfigKeySchedulerDays, models.ConfigKeySchedulerPeriodsPerDay})
		if err != nil {
			return scheduler.Grid{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grid configuration")
		}
		overrides = items
	}
	return gridFromConfig(s.cfg, overrides), nil
}

// Solve runs the engine over the current catalog. Identical catalogs with the same budget and seed
// are served from the result cache. With Persist set the result is stored as a DRAFT run.
func (s *TimetableService) Solve(ctx context.Context, req dto.SolveTimetableRequest) (*dto.SolveTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.solveSnapshot(ctx, snap, req)
}

func (s *TimetableService) solveSnapshot(ctx context.Context, snap scheduler.Snapshot, req dto.SolveTimetableRequest) (*dto.SolveTimetableResponse, error) {
	fp, err := fingerprint(snap)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint snapshot")
	}
	opts := scheduler.Options{AttemptBudget: req.AttemptBudget, Seed: req.Seed, Workers: s.cfg.Workers}
	if opts.AttemptBudget <= 0 {
		opts.AttemptBudget = s.cfg.AttemptBudget
	}
	if opts.Seed == 0 {
		opts.Seed = s.cfg.Seed
	}

	resp := &dto.SolveTimetableResponse{Fingerprint: fp}
	cacheKey := fmt.Sprintf("result:%s:%d:%d", fp, opts.AttemptBudget, opts.Seed)

	var cached scheduler.Result
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		resp.CacheHit = true
		resp.Result = &cached
	} else {
		res, err := s.solver.SolveParallel(ctx, snap, opts)
		if err != nil {
			s.metrics.ObserveSolveError()
			var verr *scheduler.ValidationError
			if errors.As(err, &verr) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "snapshot contains malformed records").WithDetails(verr.Issues)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to solve timetable")
		}
		s.metrics.ObserveSolve(res)
		// Cancelled searches depend on timing and are not reproducible.
		if !res.Stats.Cancelled {
			_ = s.cache.Set(ctx, cacheKey, res, s.cfg.ResultCacheTTL)
		}
		resp.Result = res
	}

	s.logger.Info("timetable solved",
		zap.String("fingerprint", fp),
		zap.String("status", string(resp.Result.Status)),
		zap.Int("assigned", resp.Result.Stats.AssignedUnits),
		zap.Int("unmet", resp.Result.Stats.UnmetUnits),
		zap.Int("structural", len(resp.Result.Structural)),
		zap.Bool("cache_hit", resp.CacheHit),
	)

	if req.Persist {
		runID, err := s.persist(ctx, fp, resp.Result)
		if err != nil {
			return nil, err
		}
		resp.RunID = runID
	}
	return resp, nil
}

func (s *TimetableService) persist(ctx context.Context, fp string, res *scheduler.Result) (runID string, err error) {
	statsPayload, marshalErr := json.Marshal(map[string]any{
		"stats":      res.Stats,
		"structural": res.Structural,
	})
	if marshalErr != nil {
		return "", appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode run stats")
	}

	tx, err := s.repos.Runs.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	run := &models.TimetableRun{
		Status:      models.TimetableRunStatusDraft,
		Outcome:     string(res.Status),
		Fingerprint: fp,
		Stats:       types.JSONText(statsPayload),
	}
	if err = s.repos.Runs.CreateRun(ctx, tx, run); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable run")
		return "", err
	}
	if err = s.repos.Runs.InsertAssignments(ctx, tx, assignmentRows(run.ID, res.Assignments)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignments")
		return "", err
	}
	if err = s.repos.Runs.InsertUnmet(ctx, tx, unmetRows(run.ID, res.Unmet)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist unmet sessions")
		return "", err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable run")
		return "", err
	}
	return run.ID, nil
}

// Get returns a stored run with its assignments and unmet units.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableRunResponse, error) {
	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repos.Runs.ListAssignments(ctx, run.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	unmet, err := s.repos.Runs.ListUnmet(ctx, run.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unmet sessions")
	}
	if unmet == nil {
		unmet = []models.TimetableUnmet{}
	}
	return &dto.TimetableRunResponse{Run: *run, Assignments: assignmentViews(assignments), Unmet: unmet}, nil
}

// List returns stored runs, newest first.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run query")
	}
	filter := models.TimetableRunFilter{Status: models.TimetableRunStatus(query.Status), Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	runs, total, err := s.repos.Runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	if runs == nil {
		runs = []models.TimetableRun{}
	}
	return runs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Accept promotes a DRAFT run to ACCEPTED and archives the previously accepted run.
func (s *TimetableService) Accept(ctx context.Context, id string) (*models.TimetableRun, error) {
	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != models.TimetableRunStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only draft runs can be accepted")
	}
	if run.Outcome == string(scheduler.StatusInfeasible) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "infeasible runs cannot be accepted")
	}

	tx, err := s.repos.Runs.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	archived, err := s.repos.Runs.ArchiveAccepted(ctx, tx)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive accepted run")
		return nil, err
	}
	if err = s.repos.Runs.UpdateStatus(ctx, tx, run.ID, models.TimetableRunStatusAccepted); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept timetable run")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit acceptance")
		return nil, err
	}

	_ = s.cache.Invalidate(ctx, "schedule:*")
	s.logger.Info("timetable run accepted", zap.String("run_id", run.ID), zap.Int64("archived", archived))

	run.Status = models.TimetableRunStatusAccepted
	return run, nil
}

func (s *TimetableService) findRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	run, err := s.repos.Runs.FindRun(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	return run, nil
}

// CourseSchedule projects the accepted timetable of a course onto the dates of the query range.
// The stored run is audited against the current teacher catalog first; conflicts touching the
// course are logged and returned next to the projected slots.
func (s *TimetableService) CourseSchedule(ctx context.Context, courseID string, query dto.CourseScheduleQuery) (*dto.CourseScheduleResponse, error) {
	rng, err := s.parseRange(query)
	if err != nil {
		return nil, err
	}

	course, err := s.repos.Courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	run, err := s.repos.Runs.FindAccepted(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no accepted timetable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accepted timetable")
	}
	holidays, err := s.repos.Holidays.ListBetween(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holidays")
	}

	cacheKey := fmt.Sprintf("schedule:%s:%s:%s:%s:%s", course.ID, query.From, query.To, run.ID, holidayDigest(holidays))
	var cached dto.CourseScheduleResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	rows, err := s.repos.Runs.ListAssignments(ctx, run.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run assignments")
	}
	subjects, err := s.repos.Subjects.ListByLevel(ctx, course.Level)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	teachers, err := s.repos.Teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	snap := toSnapshot(scheduler.Grid{}, []models.Course{*course}, subjects, teachers)
	assignments := assignmentsFromRows(rows)
	conflicts := courseConflicts(scheduler.Audit(snap, assignments), course.ID, assignments)
	if len(conflicts) > 0 {
		s.logger.Warn("accepted timetable conflicts with current catalog",
			zap.String("run_id", run.ID),
			zap.String("course_id", course.ID),
			zap.Int("conflicts", len(conflicts)),
		)
	}

	occurrences, err := scheduler.ProjectSchedule(snap, assignments, course.ID, rng, scheduler.NewHolidaySet(holidaysFromModels(holidays)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date range")
	}

	resp := &dto.CourseScheduleResponse{
		CourseID:  course.ID,
		RunID:     run.ID,
		From:      query.From,
		To:        query.To,
		Slots:     scheduleSlots(occurrences),
		Conflicts: conflicts,
	}
	_ = s.cache.Set(ctx, cacheKey, resp, s.cfg.ResultCacheTTL)
	return resp, nil
}

func (s *TimetableService) parseRange(query dto.CourseScheduleQuery) (scheduler.DateRange, error) {
	if err := s.validator.Struct(query); err != nil {
		return scheduler.DateRange{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from and to must be dates formatted YYYY-MM-DD")
	}
	from, err := time.Parse(projectionDateLayout, query.From)
	if err != nil {
		return scheduler.DateRange{}, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
	}
	to, err := time.Parse(projectionDateLayout, query.To)
	if err != nil {
		return scheduler.DateRange{}, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
	}
	rng := scheduler.DateRange{Start: from, End: to}
	days := rng.Days()
	if days == 0 {
		return scheduler.DateRange{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if days > s.cfg.MaxProjectionDays {
		return scheduler.DateRange{}, appErrors.Clone(appErrors.ErrRangeTooLarge, fmt.Sprintf("date range spans %d days, maximum is %d", days, s.cfg.MaxProjectionDays))
	}
	return rng, nil
}
