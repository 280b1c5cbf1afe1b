package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

const projectionDateLayout = "2006-01-02"

// gridFromConfig starts from the environment grid and applies configuration table overrides.
// Unparseable overrides are ignored.
func gridFromConfig(cfg config.SchedulerConfig, overrides []models.Configuration) scheduler.Grid {
	days := cfg.Days
	periods := cfg.PeriodsPerDay
	for _, item := range overrides {
		switch item.Key {
		case models.ConfigKeySchedulerDays:
			if parsed := config.ParseDays(item.Value); len(parsed) > 0 {
				days = parsed
			}
		case models.ConfigKeySchedulerPeriodsPerDay:
			if n, err := strconv.Atoi(strings.TrimSpace(item.Value)); err == nil && n > 0 {
				periods = n
			}
		}
	}
	return scheduler.NewGrid(days, periods)
}

func toSnapshot(grid scheduler.Grid, courses []models.Course, subjects []models.Subject, teachers []models.TeacherProfile) scheduler.Snapshot {
	snap := scheduler.Snapshot{
		Grid:     grid,
		Courses:  make([]scheduler.Course, 0, len(courses)),
		Subjects: make([]scheduler.Subject, 0, len(subjects)),
		Teachers: make([]scheduler.Teacher, 0, len(teachers)),
	}
	for _, c := range courses {
		course := scheduler.Course{ID: c.ID, Name: c.Name, Level: c.Level, StudentCount: c.StudentCount}
		if c.HeadTeacherID != nil {
			course.HeadTeacherID = *c.HeadTeacherID
		}
		snap.Courses = append(snap.Courses, course)
	}
	for _, s := range subjects {
		snap.Subjects = append(snap.Subjects, scheduler.Subject{
			ID:           s.ID,
			Name:         s.Name,
			Level:        s.Level,
			WeeklyBlocks: s.WeeklyBlocks,
			Type:         s.Type,
			Color:        s.Color,
		})
	}
	for _, t := range teachers {
		snap.Teachers = append(snap.Teachers, scheduler.Teacher{
			ID:              t.ID,
			Name:            t.Name,
			Contract:        scheduler.ContractType(t.ContractType),
			WeeklyHours:     t.WeeklyHours,
			SubjectIDs:      append([]string(nil), t.SubjectIDs...),
			AvailableBlocks: append([]string(nil), t.AvailableBlocks...),
		})
	}
	return snap
}

// fingerprint hashes the snapshot so identical catalogs share cached results.
func fingerprint(snap scheduler.Snapshot) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// holidayDigest identifies a set of holiday dates for schedule cache keys.
func holidayDigest(items []models.Holiday) string {
	dates := make([]string, 0, len(items))
	for _, h := range items {
		dates = append(dates, h.Date.Format(projectionDateLayout))
	}
	sort.Strings(dates)
	sum := sha256.Sum256([]byte(strings.Join(dates, ",")))
	return hex.EncodeToString(sum[:6])
}

// courseConflicts keeps the conflicts raised by the course's own sessions or by a teacher at a
// slot where that teacher meets the course.
func courseConflicts(conflicts []scheduler.Conflict, courseID string, assignments []scheduler.Assignment) []scheduler.Conflict {
	type teacherSlot struct {
		teacher string
		slot    scheduler.Slot
	}
	teaches := make(map[string]bool)
	meets := make(map[teacherSlot]bool)
	for _, a := range assignments {
		if a.CourseID == courseID {
			teaches[a.TeacherID] = true
			meets[teacherSlot{a.TeacherID, a.Slot}] = true
		}
	}

	var out []scheduler.Conflict
	for _, c := range conflicts {
		switch {
		case c.CourseID == courseID:
		case c.Slot == nil && teaches[c.TeacherID]:
		case c.Slot != nil && meets[teacherSlot{c.TeacherID, *c.Slot}]:
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

func assignmentRows(runID string, items []scheduler.Assignment) []models.TimetableAssignment {
	rows := make([]models.TimetableAssignment, 0, len(items))
	for _, a := range items {
		rows = append(rows, models.TimetableAssignment{
			RunID:     runID,
			CourseID:  a.CourseID,
			SubjectID: a.SubjectID,
			TeacherID: a.TeacherID,
			DayOfWeek: a.Slot.Day,
			Period:    a.Slot.Period,
		})
	}
	return rows
}

func unmetRows(runID string, items []scheduler.UnmetSession) []models.TimetableUnmet {
	rows := make([]models.TimetableUnmet, 0, len(items))
	for _, u := range items {
		rows = append(rows, models.TimetableUnmet{
			RunID:     runID,
			CourseID:  u.CourseID,
			SubjectID: u.SubjectID,
			Unit:      u.Unit,
			Reason:    string(u.Reason),
		})
	}
	return rows
}

func assignmentsFromRows(rows []models.TimetableAssignment) []scheduler.Assignment {
	out := make([]scheduler.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, scheduler.Assignment{
			CourseID:  row.CourseID,
			SubjectID: row.SubjectID,
			TeacherID: row.TeacherID,
			Slot:      scheduler.Slot{Day: row.DayOfWeek, Period: row.Period},
		})
	}
	return out
}

func assignmentViews(rows []models.TimetableAssignment) []dto.TimetableAssignmentView {
	views := make([]dto.TimetableAssignmentView, 0, len(rows))
	for _, row := range rows {
		views = append(views, dto.TimetableAssignmentView{
			CourseID:  row.CourseID,
			SubjectID: row.SubjectID,
			TeacherID: row.TeacherID,
			DayOfWeek: row.DayOfWeek,
			Period:    row.Period,
			Block:     scheduler.Slot{Day: row.DayOfWeek, Period: row.Period}.String(),
		})
	}
	return views
}

func holidaysFromModels(items []models.Holiday) []scheduler.Holiday {
	out := make([]scheduler.Holiday, 0, len(items))
	for _, h := range items {
		out = append(out, scheduler.Holiday{Date: h.Date, Description: h.Description})
	}
	return out
}

func scheduleSlots(occurrences []scheduler.Occurrence) []dto.CourseScheduleSlot {
	slots := make([]dto.CourseScheduleSlot, 0, len(occurrences))
	for _, o := range occurrences {
		slots = append(slots, dto.CourseScheduleSlot{
			Date:        o.Date.Format(projectionDateLayout),
			Block:       o.Slot.String(),
			DayOfWeek:   o.Slot.Day,
			Period:      o.Slot.Period,
			SubjectID:   o.SubjectID,
			SubjectName: o.SubjectName,
			TeacherID:   o.TeacherID,
			TeacherName: o.TeacherName,
		})
	}
	return slots
}
