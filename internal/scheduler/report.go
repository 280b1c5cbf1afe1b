package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// Status is the outcome taxonomy returned to callers.
type Status string

const (
	StatusSatisfied          Status = "SATISFIED"
	StatusPartiallySatisfied Status = "PARTIALLY_SATISFIED"
	StatusInfeasible         Status = "INFEASIBLE"
)

// UnmetReason explains why a session unit was left unassigned.
type UnmetReason string

const (
	ReasonNoQualifiedTeacher UnmetReason = "no qualified teacher"
	ReasonNoAvailableSlot    UnmetReason = "no available slot given current occupancy"
	ReasonCapacityExhausted  UnmetReason = "teacher capacity exhausted"
)

// UnmetSession is one weekly session (unit) of a requirement that received no slot. Units are
// numbered from 1 within their requirement.
type UnmetSession struct {
	CourseID  string      `json:"courseId"`
	SubjectID string      `json:"subjectId"`
	Unit      int         `json:"unit"`
	Reason    UnmetReason `json:"reason"`
}

// SearchStats summarises the work done by one solve.
type SearchStats struct {
	TotalUnits      int           `json:"totalUnits"`
	AssignedUnits   int           `json:"assignedUnits"`
	UnmetUnits      int           `json:"unmetUnits"`
	Attempts        int           `json:"attempts"`
	Backtracks      int           `json:"backtracks"`
	BudgetExhausted bool          `json:"budgetExhausted"`
	Cancelled       bool          `json:"cancelled"`
	Exhaustive      bool          `json:"exhaustive"`
	IgnoredBlocks   int           `json:"ignoredBlocks"`
	Components      int           `json:"components"`
	Duration        time.Duration `json:"duration"`
}

// Result is the reported outcome of a solve.
type Result struct {
	Status      Status            `json:"status"`
	Assignments []Assignment      `json:"assignments"`
	Unmet       []UnmetSession    `json:"unmet"`
	Structural  []StructuralIssue `json:"structural"`
	Conflicts   []Conflict        `json:"conflicts,omitempty"`
	Stats       SearchStats       `json:"stats"`
}

// Satisfied reports whether every session unit was assigned.
func (r *Result) Satisfied() bool {
	return r != nil && r.Status == StatusSatisfied
}

func buildResult(ix *Index, pc precheck, out searchOutcome) *Result {
	res := &Result{
		Assignments: make([]Assignment, 0, len(out.placements)),
		Unmet:       []UnmetSession{},
		Structural:  append([]StructuralIssue{}, pc.issues...),
	}
	for _, p := range out.placements {
		req := ix.requirements[p.req]
		res.Assignments = append(res.Assignments, Assignment{
			CourseID:  req.CourseID,
			SubjectID: req.SubjectID,
			TeacherID: ix.teacherIDs[p.cand.teacher],
			Slot:      ix.slots[p.cand.slot],
		})
	}
	SortAssignments(res.Assignments)

	total := 0
	for r, req := range ix.requirements {
		total += req.Sessions
		if reason, withheld := pc.withheld[r]; withheld {
			for unit := 1; unit <= req.Sessions; unit++ {
				res.Unmet = append(res.Unmet, UnmetSession{CourseID: req.CourseID, SubjectID: req.SubjectID, Unit: unit, Reason: reason})
			}
			continue
		}
		missing := out.remaining[r]
		if missing == 0 {
			continue
		}
		reason := unmetReason(ix, r, out.occ)
		for unit := req.Sessions - missing + 1; unit <= req.Sessions; unit++ {
			res.Unmet = append(res.Unmet, UnmetSession{CourseID: req.CourseID, SubjectID: req.SubjectID, Unit: unit, Reason: reason})
		}
	}

	res.Stats = SearchStats{
		TotalUnits:      total,
		AssignedUnits:   len(res.Assignments),
		UnmetUnits:      len(res.Unmet),
		Attempts:        out.attempts,
		Backtracks:      out.backtracks,
		BudgetExhausted: out.budgetExhausted,
		Cancelled:       out.cancelled,
		Exhaustive:      out.exhaustive,
		Components:      1,
	}
	res.Status = classify(res)
	return res
}

func classify(res *Result) Status {
	switch {
	case len(res.Unmet) == 0:
		return StatusSatisfied
	case len(res.Assignments) == 0 && len(res.Structural) > 0:
		return StatusInfeasible
	default:
		return StatusPartiallySatisfied
	}
}

// unmetReason inspects the final occupancy: if some candidate slot is free for both the course
// and the teacher, only teacher capacity stands in the way.
func unmetReason(ix *Index, r int, occ *Occupancy) UnmetReason {
	if ix.qualified[r] == 0 {
		return ReasonNoQualifiedTeacher
	}
	course := ix.reqCourse[r]
	for _, c := range ix.candidates[r] {
		if !occ.courseBusy(course, c.slot) && !occ.teacherBusy(c.teacher, c.slot) {
			return ReasonCapacityExhausted
		}
	}
	return ReasonNoAvailableSlot
}

// ConflictKind classifies an invariant violation found by Audit.
type ConflictKind string

const (
	ConflictCourseDoubleBooked  ConflictKind = "COURSE_DOUBLE_BOOKED"
	ConflictTeacherDoubleBooked ConflictKind = "TEACHER_DOUBLE_BOOKED"
	ConflictOutsideAvailability ConflictKind = "OUTSIDE_AVAILABILITY"
	ConflictOverCapacity        ConflictKind = "OVER_CAPACITY"
	ConflictNotQualified        ConflictKind = "NOT_QUALIFIED"
	ConflictUnknownTeacher      ConflictKind = "UNKNOWN_TEACHER"
)

// Conflict is a hard-constraint violation inside an assignment set.
type Conflict struct {
	Kind      ConflictKind `json:"kind"`
	CourseID  string       `json:"courseId,omitempty"`
	SubjectID string       `json:"subjectId,omitempty"`
	TeacherID string       `json:"teacherId,omitempty"`
	Slot      *Slot        `json:"slot,omitempty"`
	Message   string       `json:"message"`
}

// Audit checks an assignment set against the snapshot's hard constraints. An empty result means
// no course or teacher is double-booked and every teacher stays within availability and capacity.
func Audit(snap Snapshot, assignments []Assignment) []Conflict {
	items := append([]Assignment(nil), assignments...)
	SortAssignments(items)

	teachers := make(map[string]Teacher, len(snap.Teachers))
	available := make(map[string]map[Slot]bool, len(snap.Teachers))
	qualified := make(map[string]map[string]bool, len(snap.Teachers))
	for _, teacher := range snap.Teachers {
		teachers[teacher.ID] = teacher
		slots := make(map[Slot]bool, len(teacher.AvailableBlocks))
		for _, token := range teacher.AvailableBlocks {
			if slot, err := ParseSlot(token); err == nil {
				slots[slot] = true
			}
		}
		available[teacher.ID] = slots
		subjects := make(map[string]bool, len(teacher.SubjectIDs))
		for _, id := range teacher.SubjectIDs {
			subjects[id] = true
		}
		qualified[teacher.ID] = subjects
	}

	type courseSlot struct {
		course string
		slot   Slot
	}
	type teacherSlot struct {
		teacher string
		slot    Slot
	}
	courseSeen := make(map[courseSlot]bool, len(items))
	teacherSeen := make(map[teacherSlot]bool, len(items))
	load := make(map[string]int)

	var conflicts []Conflict
	for _, a := range items {
		slot := a.Slot
		teacher, known := teachers[a.TeacherID]
		if !known {
			conflicts = append(conflicts, Conflict{Kind: ConflictUnknownTeacher, CourseID: a.CourseID, SubjectID: a.SubjectID, TeacherID: a.TeacherID, Slot: &slot,
				Message: fmt.Sprintf("teacher %s is not part of the snapshot", a.TeacherID)})
		}
		if courseSeen[courseSlot{a.CourseID, slot}] {
			conflicts = append(conflicts, Conflict{Kind: ConflictCourseDoubleBooked, CourseID: a.CourseID, SubjectID: a.SubjectID, TeacherID: a.TeacherID, Slot: &slot,
				Message: fmt.Sprintf("course %s has more than one session at %s", a.CourseID, slot)})
		}
		courseSeen[courseSlot{a.CourseID, slot}] = true
		if teacherSeen[teacherSlot{a.TeacherID, slot}] {
			conflicts = append(conflicts, Conflict{Kind: ConflictTeacherDoubleBooked, CourseID: a.CourseID, SubjectID: a.SubjectID, TeacherID: a.TeacherID, Slot: &slot,
				Message: fmt.Sprintf("teacher %s has more than one session at %s", a.TeacherID, slot)})
		}
		teacherSeen[teacherSlot{a.TeacherID, slot}] = true
		if !known {
			continue
		}
		if !available[a.TeacherID][slot] {
			conflicts = append(conflicts, Conflict{Kind: ConflictOutsideAvailability, CourseID: a.CourseID, SubjectID: a.SubjectID, TeacherID: a.TeacherID, Slot: &slot,
				Message: fmt.Sprintf("teacher %s is not available at %s", a.TeacherID, slot)})
		}
		if !qualified[a.TeacherID][a.SubjectID] {
			conflicts = append(conflicts, Conflict{Kind: ConflictNotQualified, CourseID: a.CourseID, SubjectID: a.SubjectID, TeacherID: a.TeacherID, Slot: &slot,
				Message: fmt.Sprintf("teacher %s is not qualified for subject %s", a.TeacherID, a.SubjectID)})
		}
		load[a.TeacherID]++
		if load[a.TeacherID] == teacher.WeeklyHours+1 {
			conflicts = append(conflicts, Conflict{Kind: ConflictOverCapacity, TeacherID: a.TeacherID,
				Message: fmt.Sprintf("teacher %s exceeds %d weekly hours", a.TeacherID, teacher.WeeklyHours)})
		}
	}
	sort.SliceStable(conflicts, func(i, j int) bool { return conflicts[i].Kind < conflicts[j].Kind })
	return conflicts
}
