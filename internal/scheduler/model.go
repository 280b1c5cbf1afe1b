package scheduler

import (
	"sort"
	"time"
)

// ContractType distinguishes full and partial teaching contracts.
type ContractType string

const (
	ContractFull    ContractType = "FULL"
	ContractPartial ContractType = "PARTIAL"
)

// Subject is a catalog entry. WeeklyBlocks is the number of sessions a course of the same level needs per week.
type Subject struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name"`
	Level        string `json:"level" validate:"required"`
	WeeklyBlocks int    `json:"weeklyBlocks" validate:"min=1"`
	Type         string `json:"type"`
	Color        string `json:"color"`
}

// Course is a group of students that attends every subject of its level.
// SubjectIDs, when set, narrows the required subjects to that list.
type Course struct {
	ID            string   `json:"id" validate:"required"`
	Name          string   `json:"name"`
	Level         string   `json:"level" validate:"required"`
	HeadTeacherID string   `json:"headTeacherId,omitempty"`
	StudentCount  int      `json:"studentCount" validate:"min=0"`
	SubjectIDs    []string `json:"subjectIds,omitempty"`
}

// Teacher carries qualification, weekly capacity and availability.
type Teacher struct {
	ID              string       `json:"id" validate:"required"`
	Name            string       `json:"name"`
	Contract        ContractType `json:"contractType" validate:"omitempty,oneof=FULL PARTIAL"`
	WeeklyHours     int          `json:"weeklyHours" validate:"min=1"`
	SubjectIDs      []string     `json:"subjectIds"`
	AvailableBlocks []string     `json:"availableBlocks"`
}

// Holiday is a calendar date that suppresses projected occurrences.
type Holiday struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// Snapshot is the read-only input of one solve.
type Snapshot struct {
	Grid     Grid      `json:"grid"`
	Courses  []Course  `json:"courses"`
	Subjects []Subject `json:"subjects"`
	Teachers []Teacher `json:"teachers"`
}

// Clone deep-copies the snapshot so callers may keep mutating their own data.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Grid:     Grid{Days: append([]int(nil), s.Grid.Days...), PeriodsPerDay: s.Grid.PeriodsPerDay},
		Courses:  make([]Course, len(s.Courses)),
		Subjects: append([]Subject(nil), s.Subjects...),
		Teachers: make([]Teacher, len(s.Teachers)),
	}
	for i, course := range s.Courses {
		course.SubjectIDs = append([]string(nil), course.SubjectIDs...)
		out.Courses[i] = course
	}
	for i, teacher := range s.Teachers {
		teacher.SubjectIDs = append([]string(nil), teacher.SubjectIDs...)
		teacher.AvailableBlocks = append([]string(nil), teacher.AvailableBlocks...)
		out.Teachers[i] = teacher
	}
	return out
}

// Requirement is the derived weekly demand of one course for one subject.
type Requirement struct {
	CourseID  string `json:"courseId"`
	SubjectID string `json:"subjectId"`
	Sessions  int    `json:"sessions"`
}

// Assignment places one session of a course's subject with a teacher in a slot.
type Assignment struct {
	CourseID  string `json:"courseId"`
	SubjectID string `json:"subjectId"`
	TeacherID string `json:"teacherId"`
	Slot      Slot   `json:"slot"`
}

// SortAssignments orders assignments by course, slot, then subject.
func SortAssignments(items []Assignment) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CourseID != items[j].CourseID {
			return items[i].CourseID < items[j].CourseID
		}
		if items[i].Slot != items[j].Slot {
			return items[i].Slot.Less(items[j].Slot)
		}
		return items[i].SubjectID < items[j].SubjectID
	})
}

// Requirements derives one requirement per (course, subject) ordered by course then subject id.
// Subjects are matched by level unless the course lists explicit subject ids.
func (s Snapshot) Requirements() []Requirement {
	subjectsByID := make(map[string]Subject, len(s.Subjects))
	subjectsByLevel := make(map[string][]Subject)
	for _, subject := range s.Subjects {
		subjectsByID[subject.ID] = subject
		subjectsByLevel[subject.Level] = append(subjectsByLevel[subject.Level], subject)
	}

	var reqs []Requirement
	for _, course := range s.Courses {
		var required []Subject
		if len(course.SubjectIDs) > 0 {
			seen := make(map[string]bool, len(course.SubjectIDs))
			for _, id := range course.SubjectIDs {
				subject, ok := subjectsByID[id]
				if !ok || seen[id] {
					continue
				}
				seen[id] = true
				required = append(required, subject)
			}
		} else {
			required = subjectsByLevel[course.Level]
		}
		for _, subject := range required {
			if subject.WeeklyBlocks <= 0 {
				continue
			}
			reqs = append(reqs, Requirement{CourseID: course.ID, SubjectID: subject.ID, Sessions: subject.WeeklyBlocks})
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CourseID == reqs[j].CourseID {
			return reqs[i].SubjectID < reqs[j].SubjectID
		}
		return reqs[i].CourseID < reqs[j].CourseID
	})
	return reqs
}
