package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldIssue describes one malformed input value.
type FieldIssue struct {
	Entity  string `json:"entity"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a snapshot before any search starts.
type ValidationError struct {
	Issues []FieldIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "invalid timetable input"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.ID != "" {
			parts = append(parts, fmt.Sprintf("%s %s: %s %s", issue.Entity, issue.ID, issue.Field, issue.Message))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s %s", issue.Entity, issue.Field, issue.Message))
	}
	return "invalid timetable input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(entity, id, field, message string) {
	e.Issues = append(e.Issues, FieldIssue{Entity: entity, ID: id, Field: field, Message: message})
}

// prepared is a validated snapshot with parsed availability.
type prepared struct {
	snapshot     Snapshot
	subjects     map[string]Subject
	teachers     map[string]Teacher
	availability map[string][]Slot
	requirements []Requirement
	ignored      int
}

func validateSnapshot(validate *validator.Validate, snap Snapshot) (*prepared, error) {
	verr := &ValidationError{}

	if len(snap.Grid.Days) == 0 {
		verr.add("grid", "", "days", "must contain at least one day between 1 and 7")
	}
	seenDays := make(map[int]bool, len(snap.Grid.Days))
	for _, day := range snap.Grid.Days {
		switch {
		case day < 1 || day > 7:
			verr.add("grid", "", "days", fmt.Sprintf("day %d is outside 1..7", day))
		case seenDays[day]:
			verr.add("grid", "", "days", fmt.Sprintf("day %d is repeated", day))
		}
		seenDays[day] = true
	}
	if snap.Grid.PeriodsPerDay < 1 {
		verr.add("grid", "", "periodsPerDay", "must be at least 1")
	}

	p := &prepared{
		snapshot:     snap,
		subjects:     make(map[string]Subject, len(snap.Subjects)),
		teachers:     make(map[string]Teacher, len(snap.Teachers)),
		availability: make(map[string][]Slot, len(snap.Teachers)),
	}

	for _, subject := range snap.Subjects {
		structIssues(validate, verr, "subject", subject.ID, subject)
		if _, dup := p.subjects[subject.ID]; dup && subject.ID != "" {
			verr.add("subject", subject.ID, "id", "is duplicated")
		}
		p.subjects[subject.ID] = subject
	}

	courseIDs := make(map[string]struct{}, len(snap.Courses))
	for _, course := range snap.Courses {
		structIssues(validate, verr, "course", course.ID, course)
		if _, dup := courseIDs[course.ID]; dup && course.ID != "" {
			verr.add("course", course.ID, "id", "is duplicated")
		}
		courseIDs[course.ID] = struct{}{}
		for _, subjectID := range course.SubjectIDs {
			if _, ok := p.subjects[subjectID]; !ok {
				verr.add("course", course.ID, "subjectIds", fmt.Sprintf("references unknown subject %q", subjectID))
			}
		}
	}

	for _, teacher := range snap.Teachers {
		structIssues(validate, verr, "teacher", teacher.ID, teacher)
		if _, dup := p.teachers[teacher.ID]; dup && teacher.ID != "" {
			verr.add("teacher", teacher.ID, "id", "is duplicated")
		}
		p.teachers[teacher.ID] = teacher
		for _, subjectID := range teacher.SubjectIDs {
			if _, ok := p.subjects[subjectID]; !ok {
				verr.add("teacher", teacher.ID, "subjectIds", fmt.Sprintf("references unknown subject %q", subjectID))
			}
		}

		seen := make(map[Slot]struct{}, len(teacher.AvailableBlocks))
		slots := make([]Slot, 0, len(teacher.AvailableBlocks))
		for _, token := range teacher.AvailableBlocks {
			slot, err := ParseSlot(token)
			if err != nil {
				verr.add("teacher", teacher.ID, "availableBlocks", err.Error())
				continue
			}
			if !snap.Grid.Contains(slot) {
				p.ignored++
				continue
			}
			if _, ok := seen[slot]; ok {
				continue
			}
			seen[slot] = struct{}{}
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
		p.availability[teacher.ID] = slots
	}

	if len(verr.Issues) > 0 {
		return nil, verr
	}
	p.requirements = snap.Requirements()
	return p, nil
}

func structIssues(validate *validator.Validate, verr *ValidationError, entity, id string, value any) {
	err := validate.Struct(value)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add(entity, id, "", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.add(entity, id, lowerFirst(fe.Field()), describeTag(fe))
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
