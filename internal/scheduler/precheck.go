package scheduler

import (
	"fmt"
	"sort"
)

// IssueKind classifies structural infeasibility found before search.
type IssueKind string

const (
	IssueNoQualifiedTeacher  IssueKind = "NO_QUALIFIED_TEACHER"
	IssueNoAvailableTeacher  IssueKind = "NO_AVAILABLE_TEACHER"
	IssueTeacherOverCapacity IssueKind = "TEACHER_OVER_CAPACITY"
	IssueCourseOverGrid      IssueKind = "COURSE_OVER_GRID"
)

// StructuralIssue is a capacity or qualification mismatch that no search can fix.
type StructuralIssue struct {
	Kind       IssueKind `json:"kind"`
	CourseID   string    `json:"courseId,omitempty"`
	SubjectID  string    `json:"subjectId,omitempty"`
	TeacherID  string    `json:"teacherId,omitempty"`
	SubjectIDs []string  `json:"subjectIds,omitempty"`
	Demand     int       `json:"demand"`
	Capacity   int       `json:"capacity"`
	Message    string    `json:"message"`
}

// precheck holds the requirements excluded from search and why.
type precheck struct {
	issues   []StructuralIssue
	withheld map[int]UnmetReason
}

func runPrecheck(ix *Index) precheck {
	pc := precheck{withheld: make(map[int]UnmetReason)}

	soleDemand := make(map[int]int)
	soleReqs := make(map[int][]int)
	for r, req := range ix.requirements {
		if ix.qualified[r] == 0 {
			pc.withheld[r] = ReasonNoQualifiedTeacher
			pc.issues = append(pc.issues, StructuralIssue{
				Kind:      IssueNoQualifiedTeacher,
				CourseID:  req.CourseID,
				SubjectID: req.SubjectID,
				Demand:    req.Sessions,
				Message:   fmt.Sprintf("no teacher is qualified for subject %s required by course %s", req.SubjectID, req.CourseID),
			})
			continue
		}
		if len(ix.candidates[r]) == 0 {
			pc.withheld[r] = ReasonNoAvailableSlot
			pc.issues = append(pc.issues, StructuralIssue{
				Kind:      IssueNoAvailableTeacher,
				CourseID:  req.CourseID,
				SubjectID: req.SubjectID,
				Demand:    req.Sessions,
				Message:   fmt.Sprintf("qualified teachers for subject %s have no available block inside the grid", req.SubjectID),
			})
			continue
		}
		if t, sole := soleTeacher(ix.candidates[r]); sole {
			soleDemand[t] += req.Sessions
			soleReqs[t] = append(soleReqs[t], r)
		}
	}

	teachers := make([]int, 0, len(soleDemand))
	for t := range soleDemand {
		teachers = append(teachers, t)
	}
	sort.Ints(teachers)
	for _, t := range teachers {
		if soleDemand[t] <= ix.capacity[t] {
			continue
		}
		subjects := make([]string, 0, len(soleReqs[t]))
		seen := make(map[string]bool)
		for _, r := range soleReqs[t] {
			pc.withheld[r] = ReasonCapacityExhausted
			if id := ix.requirements[r].SubjectID; !seen[id] {
				seen[id] = true
				subjects = append(subjects, id)
			}
		}
		sort.Strings(subjects)
		pc.issues = append(pc.issues, StructuralIssue{
			Kind:       IssueTeacherOverCapacity,
			TeacherID:  ix.teacherIDs[t],
			SubjectIDs: subjects,
			Demand:     soleDemand[t],
			Capacity:   ix.capacity[t],
			Message: fmt.Sprintf("teacher %s is the only option for %d weekly blocks but may teach %d",
				ix.teacherIDs[t], soleDemand[t], ix.capacity[t]),
		})
	}

	courseDemand := make([]int, len(ix.courseIDs))
	for r, req := range ix.requirements {
		courseDemand[ix.reqCourse[r]] += req.Sessions
	}
	for c, demand := range courseDemand {
		if demand > len(ix.slots) {
			pc.issues = append(pc.issues, StructuralIssue{
				Kind:     IssueCourseOverGrid,
				CourseID: ix.courseIDs[c],
				Demand:   demand,
				Capacity: len(ix.slots),
				Message:  fmt.Sprintf("course %s needs %d weekly blocks but the grid has %d", ix.courseIDs[c], demand, len(ix.slots)),
			})
		}
	}
	return pc
}

func soleTeacher(list []candidate) (int, bool) {
	if len(list) == 0 {
		return -1, false
	}
	t := list[0].teacher
	for _, c := range list[1:] {
		if c.teacher != t {
			return -1, false
		}
	}
	return t, true
}
