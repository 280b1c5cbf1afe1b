package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type courseRepoStub struct {
	courses []models.Course
}

func (s courseRepoStub) List(context.Context) ([]models.Course, error) {
	return s.courses, nil
}

func (s courseRepoStub) FindByID(_ context.Context, id string) (*models.Course, error) {
	for _, course := range s.courses {
		if course.ID == id {
			c := course
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

type subjectRepoStub struct {
	byLevel map[string][]models.Subject
	calls   []string
	idCalls [][]string
}

func (s *subjectRepoStub) ListByIDs(_ context.Context, ids []string) ([]models.Subject, error) {
	s.idCalls = append(s.idCalls, ids)
	var out []models.Subject
	for _, subjects := range s.byLevel {
		for _, subject := range subjects {
			for _, id := range ids {
				if subject.ID == id {
					out = append(out, subject)
				}
			}
		}
	}
	return out, nil
}

func (s *subjectRepoStub) ListByLevel(_ context.Context, level string) ([]models.Subject, error) {
	s.calls = append(s.calls, level)
	return s.byLevel[level], nil
}

type teacherRepoStub struct {
	teachers []models.TeacherProfile
}

func (s teacherRepoStub) List(context.Context) ([]models.TeacherProfile, error) {
	return s.teachers, nil
}

type holidayRepoStub struct {
	holidays []models.Holiday
}

func (s holidayRepoStub) ListBetween(_ context.Context, from, to time.Time) ([]models.Holiday, error) {
	var out []models.Holiday
	for _, h := range s.holidays {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

type configRepoStub struct {
	items []models.Configuration
}

func (s configRepoStub) ListByKeys(context.Context, []string) ([]models.Configuration, error) {
	return s.items, nil
}

type runStoreStub struct {
	db          *sqlx.DB
	runs        map[string]models.TimetableRun
	assignments map[string][]models.TimetableAssignment
	unmet       map[string][]models.TimetableUnmet
	insertErr   error
	archived    int
}

func newRunStoreStub(t *testing.T) (*runStoreStub, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &runStoreStub{
		db:          sqlx.NewDb(db, "sqlmock"),
		runs:        map[string]models.TimetableRun{},
		assignments: map[string][]models.TimetableAssignment{},
		unmet:       map[string][]models.TimetableUnmet{},
	}, mock
}

func (s *runStoreStub) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, opts)
}

func (s *runStoreStub) CreateRun(_ context.Context, _ sqlx.ExtContext, run *models.TimetableRun) error {
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(s.runs)+1)
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *runStoreStub) InsertAssignments(_ context.Context, _ sqlx.ExtContext, rows []models.TimetableAssignment) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, row := range rows {
		s.assignments[row.RunID] = append(s.assignments[row.RunID], row)
	}
	return nil
}

func (s *runStoreStub) InsertUnmet(_ context.Context, _ sqlx.ExtContext, rows []models.TimetableUnmet) error {
	for _, row := range rows {
		s.unmet[row.RunID] = append(s.unmet[row.RunID], row)
	}
	return nil
}

func (s *runStoreStub) FindRun(_ context.Context, id string) (*models.TimetableRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &run, nil
}

func (s *runStoreStub) FindAccepted(context.Context) (*models.TimetableRun, error) {
	for _, run := range s.runs {
		if run.Status == models.TimetableRunStatusAccepted {
			r := run
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *runStoreStub) ListRuns(_ context.Context, filter models.TimetableRunFilter) ([]models.TimetableRun, int, error) {
	var out []models.TimetableRun
	for _, run := range s.runs {
		if filter.Status == "" || run.Status == filter.Status {
			out = append(out, run)
		}
	}
	return out, len(out), nil
}

func (s *runStoreStub) ListAssignments(_ context.Context, runID string) ([]models.TimetableAssignment, error) {
	return s.assignments[runID], nil
}

func (s *runStoreStub) ListCourseAssignments(_ context.Context, runID, courseID string) ([]models.TimetableAssignment, error) {
	var out []models.TimetableAssignment
	for _, row := range s.assignments[runID] {
		if row.CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *runStoreStub) ListUnmet(_ context.Context, runID string) ([]models.TimetableUnmet, error) {
	return s.unmet[runID], nil
}

func (s *runStoreStub) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.TimetableRunStatus) error {
	run, ok := s.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	run.Status = status
	s.runs[id] = run
	return nil
}

func (s *runStoreStub) ArchiveAccepted(context.Context, sqlx.ExtContext) (int64, error) {
	var n int64
	for id, run := range s.runs {
		if run.Status == models.TimetableRunStatusAccepted {
			run.Status = models.TimetableRunStatusArchived
			s.runs[id] = run
			n++
		}
	}
	s.archived += int(n)
	return n, nil
}

type countingSolver struct {
	engine *scheduler.Engine
	calls  int32
}

func (c *countingSolver) SolveParallel(ctx context.Context, snap scheduler.Snapshot, opts scheduler.Options) (*scheduler.Result, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.engine.SolveParallel(ctx, snap, opts)
}

type timetableFixture struct {
	service  *TimetableService
	subjects *subjectRepoStub
	runs     *runStoreStub
	mock     sqlmock.Sqlmock
	solver   *countingSolver
	cache    *memoryCacheRepo
}

func weekBlocks() []string {
	return []string{"MON-1", "MON-2", "TUE-1", "TUE-2"}
}

func newTimetableFixture(t *testing.T, mutate func(*TimetableRepositories, *config.SchedulerConfig)) *timetableFixture {
	t.Helper()
	subjects := &subjectRepoStub{byLevel: map[string][]models.Subject{
		"basic": {
			{ID: "lang", Name: "Language", Level: "basic", WeeklyBlocks: 1},
			{ID: "math", Name: "Mathematics", Level: "basic", WeeklyBlocks: 2},
		},
	}}
	runs, mock := newRunStoreStub(t)
	repos := TimetableRepositories{
		Courses: courseRepoStub{courses: []models.Course{
			{ID: "c1", Name: "1A", Level: "basic", StudentCount: 30},
			{ID: "c2", Name: "1B", Level: "basic", StudentCount: 28},
		}},
		Subjects: subjects,
		Teachers: teacherRepoStub{teachers: []models.TeacherProfile{
			{Teacher: models.Teacher{ID: "t1", Name: "Ana", ContractType: models.ContractTypeFull, WeeklyHours: 10}, SubjectIDs: []string{"math"}, AvailableBlocks: weekBlocks()},
			{Teacher: models.Teacher{ID: "t2", Name: "Luis", ContractType: models.ContractTypePartial, WeeklyHours: 10}, SubjectIDs: []string{"lang"}, AvailableBlocks: weekBlocks()},
		}},
		Holidays: holidayRepoStub{holidays: []models.Holiday{
			{ID: "h1", Date: time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC), Description: "School anniversary"},
		}},
		Configs: configRepoStub{items: []models.Configuration{
			{Key: models.ConfigKeySchedulerPeriodsPerDay, Value: "2"},
		}},
		Runs: runs,
	}
	cfg := config.SchedulerConfig{
		Days:              []int{1, 2},
		PeriodsPerDay:     8,
		AttemptBudget:     10000,
		Workers:           2,
		ResultCacheTTL:    time.Minute,
		MaxProjectionDays: 60,
	}
	if mutate != nil {
		mutate(&repos, &cfg)
	}
	cacheRepo := newMemoryCacheRepo()
	solver := &countingSolver{engine: scheduler.New(nil, scheduler.Options{})}
	svc := NewTimetableService(repos, solver, NewCacheService(cacheRepo, nil, "timetable", time.Minute, nil, true), NewMetricsService(), nil, nil, cfg)
	return &timetableFixture{service: svc, subjects: subjects, runs: runs, mock: mock, solver: solver, cache: cacheRepo}
}

func requireAppError(t *testing.T, err error, target *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected app error, got %v", err)
	assert.Equal(t, target.Code, appErr.Code)
	return appErr
}

func (f *timetableFixture) holidayList(t *testing.T) []models.Holiday {
	t.Helper()
	from := time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.September, 10, 0, 0, 0, 0, time.UTC)
	items, err := f.service.repos.Holidays.ListBetween(context.Background(), from, to)
	require.NoError(t, err)
	return items
}

func (f *timetableFixture) acceptedRun(t *testing.T) string {
	t.Helper()
	f.runs.runs["run-acc"] = models.TimetableRun{ID: "run-acc", Status: models.TimetableRunStatusAccepted, Outcome: "SATISFIED"}
	f.runs.assignments["run-acc"] = []models.TimetableAssignment{
		{RunID: "run-acc", CourseID: "c1", SubjectID: "math", TeacherID: "t1", DayOfWeek: 1, Period: 1},
		{RunID: "run-acc", CourseID: "c1", SubjectID: "lang", TeacherID: "t2", DayOfWeek: 2, Period: 2},
		{RunID: "run-acc", CourseID: "c2", SubjectID: "math", TeacherID: "t1", DayOfWeek: 1, Period: 2},
	}
	return "run-acc"
}

func TestTimetableServiceLoadSnapshotAppliesGridOverride(t *testing.T) {
	f := newTimetableFixture(t, nil)

	snap, err := f.service.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, snap.Grid.Days)
	assert.Equal(t, 2, snap.Grid.PeriodsPerDay)
	assert.Len(t, snap.Courses, 2)
	assert.Len(t, snap.Subjects, 2)
	assert.Equal(t, []string{"basic"}, f.subjects.calls)
	assert.Equal(t, scheduler.ContractPartial, snap.Teachers[1].Contract)
}

func TestTimetableServiceSolveSatisfiedAndCached(t *testing.T) {
	f := newTimetableFixture(t, nil)

	first, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, scheduler.StatusSatisfied, first.Result.Status)
	assert.Len(t, first.Result.Assignments, 6)
	assert.Empty(t, first.Result.Conflicts)
	assert.Empty(t, first.RunID)

	second, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Result.Assignments, second.Result.Assignments)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.solver.calls))

	_, err = f.service.Solve(context.Background(), dto.SolveTimetableRequest{Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.solver.calls))
}

func TestTimetableServiceSolvePersistsDraft(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{Persist: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RunID)

	run := f.runs.runs[resp.RunID]
	assert.Equal(t, models.TimetableRunStatusDraft, run.Status)
	assert.Equal(t, "SATISFIED", run.Outcome)
	assert.Equal(t, resp.Fingerprint, run.Fingerprint)
	assert.Contains(t, string(run.Stats), `"assignedUnits":6`)
	assert.Len(t, f.runs.assignments[resp.RunID], 6)
	assert.Empty(t, f.runs.unmet[resp.RunID])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTimetableServiceSolvePersistRollsBack(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.runs.insertErr = errors.New("disk full")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{Persist: true})
	requireAppError(t, err, appErrors.ErrInternal)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTimetableServiceSolveRecordsUnmetSessions(t *testing.T) {
	f := newTimetableFixture(t, func(repos *TimetableRepositories, _ *config.SchedulerConfig) {
		repos.Teachers = teacherRepoStub{teachers: []models.TeacherProfile{
			{Teacher: models.Teacher{ID: "t1", Name: "Ana", WeeklyHours: 10}, SubjectIDs: []string{"math"}, AvailableBlocks: weekBlocks()},
		}}
	})
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{Persist: true})
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusPartiallySatisfied, resp.Result.Status)
	require.Len(t, f.runs.unmet[resp.RunID], 2)
	for _, row := range f.runs.unmet[resp.RunID] {
		assert.Equal(t, "lang", row.SubjectID)
		assert.Equal(t, string(scheduler.ReasonNoQualifiedTeacher), row.Reason)
	}
}

func TestTimetableServiceSolveRejectsMalformedCatalog(t *testing.T) {
	f := newTimetableFixture(t, func(repos *TimetableRepositories, _ *config.SchedulerConfig) {
		repos.Teachers = teacherRepoStub{teachers: []models.TeacherProfile{
			{Teacher: models.Teacher{ID: "t1", Name: "Ana", WeeklyHours: 0}, SubjectIDs: []string{"math"}, AvailableBlocks: weekBlocks()},
		}}
	})

	_, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{})
	appErr := requireAppError(t, err, appErrors.ErrValidation)
	issues, ok := appErr.Details.([]scheduler.FieldIssue)
	require.True(t, ok)
	require.NotEmpty(t, issues)
	assert.Equal(t, "weeklyHours", issues[0].Field)
}

func TestTimetableServiceSolveRejectsBadBudget(t *testing.T) {
	f := newTimetableFixture(t, nil)
	_, err := f.service.Solve(context.Background(), dto.SolveTimetableRequest{AttemptBudget: -5})
	requireAppError(t, err, appErrors.ErrValidation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.solver.calls))
}

func TestTimetableServiceGet(t *testing.T) {
	f := newTimetableFixture(t, nil)
	runID := f.acceptedRun(t)

	resp, err := f.service.Get(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 3)
	assert.Equal(t, "MON-1", resp.Assignments[0].Block)
	assert.NotNil(t, resp.Unmet)

	_, err = f.service.Get(context.Background(), "missing")
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceList(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.acceptedRun(t)
	f.runs.runs["draft"] = models.TimetableRun{ID: "draft", Status: models.TimetableRunStatusDraft}

	runs, page, err := f.service.List(context.Background(), dto.TimetableRunQuery{Status: "DRAFT"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "draft", runs[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalCount)

	_, _, err = f.service.List(context.Background(), dto.TimetableRunQuery{Status: "LIVE"})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestTimetableServiceAcceptArchivesPrevious(t *testing.T) {
	f := newTimetableFixture(t, nil)
	previous := f.acceptedRun(t)
	f.runs.runs["draft"] = models.TimetableRun{ID: "draft", Status: models.TimetableRunStatusDraft, Outcome: "PARTIALLY_SATISFIED"}
	f.cache.items["timetable:schedule:c1:2024-09-02:2024-09-06:run-acc:0123456789ab"] = []byte(`{}`)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	run, err := f.service.Accept(context.Background(), "draft")
	require.NoError(t, err)
	assert.Equal(t, models.TimetableRunStatusAccepted, run.Status)
	assert.Equal(t, models.TimetableRunStatusArchived, f.runs.runs[previous].Status)
	assert.Equal(t, models.TimetableRunStatusAccepted, f.runs.runs["draft"].Status)
	assert.Equal(t, 1, f.runs.archived)
	assert.NotContains(t, f.cache.items, "timetable:schedule:c1:2024-09-02:2024-09-06:run-acc:0123456789ab")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTimetableServiceAcceptGuards(t *testing.T) {
	f := newTimetableFixture(t, nil)
	accepted := f.acceptedRun(t)
	f.runs.runs["infeasible"] = models.TimetableRun{ID: "infeasible", Status: models.TimetableRunStatusDraft, Outcome: "INFEASIBLE"}

	_, err := f.service.Accept(context.Background(), accepted)
	requireAppError(t, err, appErrors.ErrConflict)

	_, err = f.service.Accept(context.Background(), "infeasible")
	requireAppError(t, err, appErrors.ErrPreconditionFailed)

	_, err = f.service.Accept(context.Background(), "missing")
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceCourseScheduleSkipsHolidays(t *testing.T) {
	f := newTimetableFixture(t, nil)
	runID := f.acceptedRun(t)

	resp, err := f.service.CourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-10"})
	require.NoError(t, err)
	assert.Equal(t, runID, resp.RunID)
	require.Len(t, resp.Slots, 3)

	assert.Equal(t, "2024-09-02", resp.Slots[0].Date)
	assert.Equal(t, "MON-1", resp.Slots[0].Block)
	assert.Equal(t, "Mathematics", resp.Slots[0].SubjectName)
	assert.Equal(t, "Ana", resp.Slots[0].TeacherName)
	assert.Equal(t, "2024-09-09", resp.Slots[1].Date)
	assert.Equal(t, "2024-09-10", resp.Slots[2].Date)
	assert.Equal(t, "TUE-2", resp.Slots[2].Block)
	assert.Equal(t, "Luis", resp.Slots[2].TeacherName)
	assert.Empty(t, resp.Conflicts)
	assert.Contains(t, f.cache.items, "timetable:schedule:c1:2024-09-02:2024-09-10:run-acc:"+holidayDigest(f.holidayList(t)))
}

func TestTimetableServiceCourseScheduleReflectsNewHolidays(t *testing.T) {
	holidays := &holidayRepoStub{holidays: []models.Holiday{
		{ID: "h1", Date: time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC)},
	}}
	f := newTimetableFixture(t, func(repos *TimetableRepositories, _ *config.SchedulerConfig) {
		repos.Holidays = holidays
	})
	f.acceptedRun(t)
	query := dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-10"}

	first, err := f.service.CourseSchedule(context.Background(), "c1", query)
	require.NoError(t, err)
	require.Len(t, first.Slots, 3)

	holidays.holidays = append(holidays.holidays, models.Holiday{ID: "h2", Date: time.Date(2024, time.September, 9, 0, 0, 0, 0, time.UTC)})
	second, err := f.service.CourseSchedule(context.Background(), "c1", query)
	require.NoError(t, err)
	require.Len(t, second.Slots, 2)
	assert.Equal(t, "2024-09-02", second.Slots[0].Date)
	assert.Equal(t, "2024-09-10", second.Slots[1].Date)
}

func TestTimetableServiceCourseScheduleAuditsStoredRun(t *testing.T) {
	f := newTimetableFixture(t, func(repos *TimetableRepositories, _ *config.SchedulerConfig) {
		repos.Teachers = teacherRepoStub{teachers: []models.TeacherProfile{
			{Teacher: models.Teacher{ID: "t1", Name: "Ana", ContractType: models.ContractTypeFull, WeeklyHours: 10}, SubjectIDs: []string{"math"}, AvailableBlocks: []string{"TUE-1", "TUE-2"}},
			{Teacher: models.Teacher{ID: "t2", Name: "Luis", ContractType: models.ContractTypePartial, WeeklyHours: 10}, SubjectIDs: []string{"lang"}, AvailableBlocks: weekBlocks()},
		}}
	})
	f.acceptedRun(t)

	resp, err := f.service.CourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-10"})
	require.NoError(t, err)
	require.Len(t, resp.Slots, 3)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, scheduler.ConflictOutsideAvailability, resp.Conflicts[0].Kind)
	assert.Equal(t, "c1", resp.Conflicts[0].CourseID)
	assert.Equal(t, "t1", resp.Conflicts[0].TeacherID)
	require.NotNil(t, resp.Conflicts[0].Slot)
	assert.Equal(t, scheduler.Slot{Day: 1, Period: 1}, *resp.Conflicts[0].Slot)
}

func TestCourseConflictsKeepsTeacherClashesAtCourseSlots(t *testing.T) {
	monday := scheduler.Slot{Day: 1, Period: 1}
	tuesday := scheduler.Slot{Day: 2, Period: 1}
	assignments := []scheduler.Assignment{
		{CourseID: "c1", SubjectID: "math", TeacherID: "t1", Slot: monday},
		{CourseID: "c2", SubjectID: "math", TeacherID: "t1", Slot: monday},
		{CourseID: "c2", SubjectID: "math", TeacherID: "t3", Slot: tuesday},
	}
	conflicts := []scheduler.Conflict{
		{Kind: scheduler.ConflictTeacherDoubleBooked, CourseID: "c2", TeacherID: "t1", Slot: &monday},
		{Kind: scheduler.ConflictOverCapacity, TeacherID: "t1"},
		{Kind: scheduler.ConflictOverCapacity, TeacherID: "t3"},
		{Kind: scheduler.ConflictOutsideAvailability, CourseID: "c2", TeacherID: "t3", Slot: &tuesday},
	}

	got := courseConflicts(conflicts, "c1", assignments)
	require.Len(t, got, 2)
	assert.Equal(t, scheduler.ConflictTeacherDoubleBooked, got[0].Kind)
	assert.Equal(t, scheduler.ConflictOverCapacity, got[1].Kind)
	assert.Equal(t, "t1", got[1].TeacherID)
}

func TestTimetableServiceCourseScheduleErrors(t *testing.T) {
	f := newTimetableFixture(t, nil)

	_, err := f.service.CourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-10"})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)

	f.acceptedRun(t)
	_, err = f.service.CourseSchedule(context.Background(), "ghost", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-10"})
	requireAppError(t, err, appErrors.ErrNotFound)

	_, err = f.service.CourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-10", To: "2024-09-02"})
	requireAppError(t, err, appErrors.ErrValidation)

	_, err = f.service.CourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-01-01", To: "2024-06-30"})
	requireAppError(t, err, appErrors.ErrRangeTooLarge)

	_, err = f.service.CourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "02/09/2024", To: "2024-09-10"})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestTimetableServiceExportCourseSchedule(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.acceptedRun(t)

	file, err := f.service.ExportCourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-06"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "schedule_c1_2024-09-02_2024-09-06.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Block,Subject,Teacher", lines[0])
	assert.Equal(t, "2024-09-02,MON-1,Mathematics,Ana", lines[1])

	pdf, err := f.service.ExportCourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-06", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Data), "%PDF"))

	_, err = f.service.ExportCourseSchedule(context.Background(), "c1", dto.CourseScheduleQuery{From: "2024-09-02", To: "2024-09-06", Format: "xlsx"})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestTimetableServiceExportRunGrid(t *testing.T) {
	f := newTimetableFixture(t, nil)
	runID := f.acceptedRun(t)

	file, err := f.service.ExportRunGrid(context.Background(), runID, "c1")
	require.NoError(t, err)
	assert.Equal(t, "timetable_run-acc_c1.pdf", file.Filename)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
	require.Len(t, f.subjects.idCalls, 1)
	assert.ElementsMatch(t, []string{"math", "lang"}, f.subjects.idCalls[0])

	_, err = f.service.ExportRunGrid(context.Background(), runID, "c9")
	requireAppError(t, err, appErrors.ErrNotFound)
}
