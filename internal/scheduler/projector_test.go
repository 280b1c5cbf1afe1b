package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func projectionSnapshot() (Snapshot, []Assignment) {
	snap := Snapshot{
		Grid:     DefaultGrid(),
		Courses:  []Course{{ID: "c1", Level: "basic"}},
		Subjects: []Subject{{ID: "x", Name: "Math", Level: "basic", WeeklyBlocks: 2}},
		Teachers: []Teacher{{ID: "t1", Name: "Ana", WeeklyHours: 5, SubjectIDs: []string{"x"}, AvailableBlocks: []string{"MON-1", "WED-1"}}},
	}
	assignments := []Assignment{
		{CourseID: "c1", SubjectID: "x", TeacherID: "t1", Slot: Slot{Day: 3, Period: 1}},
		{CourseID: "c1", SubjectID: "x", TeacherID: "t1", Slot: Slot{Day: 1, Period: 1}},
		{CourseID: "c9", SubjectID: "x", TeacherID: "t1", Slot: Slot{Day: 2, Period: 1}},
	}
	return snap, assignments
}

func TestProjectScheduleSkipsHolidays(t *testing.T) {
	snap, assignments := projectionSnapshot()
	holidays := NewHolidaySet([]Holiday{{Date: date(2024, time.September, 4), Description: "Founders day"}})

	got, err := ProjectSchedule(snap, assignments, "c1", DateRange{Start: date(2024, time.September, 2), End: date(2024, time.September, 8)}, holidays)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, date(2024, time.September, 2), got[0].Date)
	assert.Equal(t, "Math", got[0].SubjectName)
	assert.Equal(t, "Ana", got[0].TeacherName)
}

func TestProjectScheduleOrdersByDateThenSlot(t *testing.T) {
	snap, assignments := projectionSnapshot()
	assignments = append(assignments, Assignment{CourseID: "c1", SubjectID: "y", TeacherID: "t2", Slot: Slot{Day: 1, Period: 3}})

	got, err := ProjectSchedule(snap, assignments, "c1", DateRange{Start: date(2024, time.September, 2), End: date(2024, time.September, 15)}, nil)
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, date(2024, time.September, 2), got[0].Date)
	assert.Equal(t, 1, got[0].Slot.Period)
	assert.Equal(t, 3, got[1].Slot.Period)
	assert.Equal(t, "y", got[1].SubjectName, "unknown subject falls back to id")
	assert.Equal(t, "t2", got[1].TeacherName)
	assert.Equal(t, date(2024, time.September, 4), got[2].Date)
	assert.Equal(t, date(2024, time.September, 11), got[5].Date)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Date.Before(got[i-1].Date))
	}
}

func TestProjectScheduleUnknownCourseIsEmpty(t *testing.T) {
	snap, assignments := projectionSnapshot()
	got, err := ProjectSchedule(snap, assignments, "missing", DateRange{Start: date(2024, time.September, 2), End: date(2024, time.September, 8)}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProjectScheduleRejectsInvertedRange(t *testing.T) {
	snap, assignments := projectionSnapshot()
	_, err := ProjectSchedule(snap, assignments, "c1", DateRange{Start: date(2024, time.September, 8), End: date(2024, time.September, 2)}, nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "end", verr.Issues[0].Field)
}

func TestProjectScheduleRoundTripsSolvedWeek(t *testing.T) {
	snap := schoolSnapshot()
	res, err := newTestEngine().Solve(context.Background(), snap, Options{})
	require.NoError(t, err)

	week := DateRange{Start: date(2024, time.September, 2), End: date(2024, time.September, 8)}
	var projected int
	for _, course := range snap.Courses {
		occurrences, err := ProjectSchedule(snap, res.Assignments, course.ID, week, nil)
		require.NoError(t, err)
		for _, occ := range occurrences {
			assert.Equal(t, occ.Slot.Day, ISODay(occ.Date))
		}
		projected += len(occurrences)
	}
	assert.Equal(t, len(res.Assignments), projected)
}

func TestDateRangeDays(t *testing.T) {
	assert.Equal(t, 7, DateRange{Start: date(2024, time.September, 2), End: date(2024, time.September, 8)}.Days())
	assert.Equal(t, 1, DateRange{Start: date(2024, time.September, 2), End: date(2024, time.September, 2)}.Days())
	assert.Zero(t, DateRange{Start: date(2024, time.September, 3), End: date(2024, time.September, 2)}.Days())
}
