package scheduler

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of dates in the range, or 0 when it is inverted.
func (r DateRange) Days() int {
	start, end := truncateDate(r.Start), truncateDate(r.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HolidaySet is the set of dates on which no session occurs.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from holiday records.
func NewHolidaySet(holidays []Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set.Add(h.Date)
	}
	return set
}

// Add marks the date as a holiday.
func (h HolidaySet) Add(date time.Time) {
	h[date.Format(dateLayout)] = struct{}{}
}

// Contains reports whether the date is a holiday.
func (h HolidaySet) Contains(date time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[date.Format(dateLayout)]
	return ok
}

// Occurrence is one dated session of a course.
type Occurrence struct {
	Date        time.Time `json:"date"`
	Slot        Slot      `json:"slot"`
	CourseID    string    `json:"courseId"`
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	TeacherID   string    `json:"teacherId"`
	TeacherName string    `json:"teacherName"`
}

// ProjectSchedule expands the course's weekly assignments onto every date in the range whose
// weekday matches the slot day. Holiday dates are skipped and their sessions are not moved.
// Occurrences are ordered by date, then slot. Names are resolved from the snapshot and fall back
// to identifiers.
func ProjectSchedule(snap Snapshot, assignments []Assignment, courseID string, rng DateRange, holidays HolidaySet) ([]Occurrence, error) {
	start, end := truncateDate(rng.Start), truncateDate(rng.End)
	if end.Before(start) {
		return nil, &ValidationError{Issues: []FieldIssue{{Entity: "range", Field: "end", Message: "must not be before start"}}}
	}

	subjectNames := make(map[string]string, len(snap.Subjects))
	for _, subject := range snap.Subjects {
		subjectNames[subject.ID] = subject.Name
	}
	teacherNames := make(map[string]string, len(snap.Teachers))
	for _, teacher := range snap.Teachers {
		teacherNames[teacher.ID] = teacher.Name
	}

	byDay := make(map[int][]Assignment)
	for _, a := range assignments {
		if a.CourseID != courseID {
			continue
		}
		byDay[a.Slot.Day] = append(byDay[a.Slot.Day], a)
	}
	for day := range byDay {
		items := byDay[day]
		sort.Slice(items, func(i, j int) bool {
			if items[i].Slot.Period == items[j].Slot.Period {
				return items[i].SubjectID < items[j].SubjectID
			}
			return items[i].Slot.Period < items[j].Slot.Period
		})
	}

	var out []Occurrence
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		items := byDay[ISODay(date)]
		if len(items) == 0 || holidays.Contains(date) {
			continue
		}
		for _, a := range items {
			out = append(out, Occurrence{
				Date:        date,
				Slot:        a.Slot,
				CourseID:    a.CourseID,
				SubjectID:   a.SubjectID,
				SubjectName: nameOr(subjectNames[a.SubjectID], a.SubjectID),
				TeacherID:   a.TeacherID,
				TeacherName: nameOr(teacherNames[a.TeacherID], a.TeacherID),
			})
		}
	}
	return out, nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
