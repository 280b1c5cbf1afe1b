package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

var scheduleExportHeaders = []string{"Date", "Block", "Subject", "Teacher"}

// ExportCourseSchedule renders the course schedule rows as CSV or PDF.
func (s *TimetableService) ExportCourseSchedule(ctx context.Context, courseID string, query dto.CourseScheduleQuery) (*dto.ExportFile, error) {
	schedule, err := s.CourseSchedule(ctx, courseID, query)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: scheduleExportHeaders, Rows: make([]map[string]string, 0, len(schedule.Slots))}
	for _, slot := range schedule.Slots {
		data.Rows = append(data.Rows, map[string]string{
			"Date":    slot.Date,
			"Block":   slot.Block,
			"Subject": slot.SubjectName,
			"Teacher": slot.TeacherName,
		})
	}

	base := fmt.Sprintf("schedule_%s_%s_%s", courseID, query.From, query.To)
	switch query.Format {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: payload}, nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(export.Document{
			Title:    "Course schedule " + courseID,
			Subtitle: fmt.Sprintf("%s to %s", query.From, query.To),
			Data:     data,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// ExportRunGrid renders one course's week of a stored run as a period by day PDF grid.
func (s *TimetableService) ExportRunGrid(ctx context.Context, runID, courseID string) (*dto.ExportFile, error) {
	run, err := s.findRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repos.Runs.ListCourseAssignments(ctx, run.ID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assignments")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course has no assignments in this run")
	}
	grid, err := s.grid(ctx)
	if err != nil {
		return nil, err
	}

	subjects, teachers, err := s.gridNames(ctx, rows)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(grid.Days))
	dayIndex := make(map[int]int, len(grid.Days))
	for i, day := range grid.Days {
		columns[i] = scheduler.DayName(day)
		dayIndex[day] = i
	}
	labels := make([]string, grid.PeriodsPerDay)
	cells := make([][]string, grid.PeriodsPerDay)
	for p := range labels {
		labels[p] = strconv.Itoa(p + 1)
		cells[p] = make([]string, len(columns))
	}
	for _, row := range rows {
		col, ok := dayIndex[row.DayOfWeek]
		if !ok || row.Period < 1 || row.Period > grid.PeriodsPerDay {
			continue
		}
		cells[row.Period-1][col] = subjects[row.SubjectID] + " / " + teachers[row.TeacherID]
	}

	payload, err := export.NewLandscapePDFExporter().RenderGrid(export.WeekGrid{
		Title:     "Weekly timetable " + courseID,
		Subtitle:  fmt.Sprintf("Run %s (%s)", run.ID, run.Status),
		Columns:   columns,
		RowLabels: labels,
		Cells:     cells,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grid")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("timetable_%s_%s.pdf", run.ID, courseID),
		ContentType: "application/pdf",
		Data:        payload,
	}, nil
}

// gridNames resolves display names for the subjects and teachers of rows, falling back to ids.
func (s *TimetableService) gridNames(ctx context.Context, rows []models.TimetableAssignment) (map[string]string, map[string]string, error) {
	subjectNames := make(map[string]string)
	teacherNames := make(map[string]string)
	var subjectIDs []string
	for _, row := range rows {
		if _, ok := subjectNames[row.SubjectID]; !ok {
			subjectNames[row.SubjectID] = row.SubjectID
			subjectIDs = append(subjectIDs, row.SubjectID)
		}
		teacherNames[row.TeacherID] = row.TeacherID
	}

	subjects, err := s.repos.Subjects.ListByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	for _, subject := range subjects {
		if subject.Name != "" {
			subjectNames[subject.ID] = subject.Name
		}
	}
	teachers, err := s.repos.Teachers.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	for _, teacher := range teachers {
		if _, used := teacherNames[teacher.ID]; used && teacher.Name != "" {
			teacherNames[teacher.ID] = teacher.Name
		}
	}
	return subjectNames, teacherNames, nil
}
