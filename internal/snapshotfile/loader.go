// Package snapshotfile reads solver snapshots from HCL files for offline runs.
//
// A file holds one optional grid block and any number of subject, course, teacher
// and holiday blocks:
//
//	grid {
//	  days            = [MON, TUE, WED, THU, FRI]
//	  periods_per_day = 8
//	}
//
//	subject "math" {
//	  name          = "Mathematics"
//	  level         = "basic"
//	  weekly_blocks = 4
//	}
//
//	teacher "t1" {
//	  name         = "Ana"
//	  weekly_hours = 20
//	  subjects     = ["math"]
//	  available    = concat(blocks([MON, TUE], 1, 8), ["FRI-1"])
//	}
package snapshotfile

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

const holidayLayout = "2006-01-02"

type hclFile struct {
	Grid     *hclGrid     `hcl:"grid,block"`
	Subjects []hclSubject `hcl:"subject,block"`
	Courses  []hclCourse  `hcl:"course,block"`
	Teachers []hclTeacher `hcl:"teacher,block"`
	Holidays []hclHoliday `hcl:"holiday,block"`
}

type hclGrid struct {
	Days          []int `hcl:"days"`
	PeriodsPerDay int   `hcl:"periods_per_day"`
}

type hclSubject struct {
	ID           string  `hcl:"id,label"`
	Name         *string `hcl:"name,optional"`
	Level        string  `hcl:"level"`
	WeeklyBlocks int     `hcl:"weekly_blocks"`
	Type         *string `hcl:"type,optional"`
	Color        *string `hcl:"color,optional"`
}

type hclCourse struct {
	ID            string   `hcl:"id,label"`
	Name          *string  `hcl:"name,optional"`
	Level         string   `hcl:"level"`
	StudentCount  *int     `hcl:"student_count,optional"`
	HeadTeacherID *string  `hcl:"head_teacher,optional"`
	SubjectIDs    []string `hcl:"subjects,optional"`
}

type hclTeacher struct {
	ID              string   `hcl:"id,label"`
	Name            *string  `hcl:"name,optional"`
	Contract        *string  `hcl:"contract,optional"`
	WeeklyHours     int      `hcl:"weekly_hours"`
	SubjectIDs      []string `hcl:"subjects"`
	AvailableBlocks []string `hcl:"available"`
}

type hclHoliday struct {
	Date        string  `hcl:"date,label"`
	Description *string `hcl:"description,optional"`
}

// File is a decoded snapshot file.
type File struct {
	Snapshot scheduler.Snapshot
	Holidays []scheduler.Holiday
}

// Load parses the HCL file at path. A file without a grid block uses fallback.
func Load(path string, fallback scheduler.Grid) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return Parse(src, path, fallback)
}

// Parse decodes snapshot source; filename is only used in diagnostics.
func Parse(src []byte, filename string, fallback scheduler.Grid) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	var decoded hclFile
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &decoded); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}
	return decoded.toFile(fallback)
}

func (f hclFile) toFile(fallback scheduler.Grid) (*File, error) {
	out := &File{Snapshot: scheduler.Snapshot{Grid: fallback}}
	if f.Grid != nil {
		out.Snapshot.Grid = scheduler.NewGrid(f.Grid.Days, f.Grid.PeriodsPerDay)
	}

	for _, s := range f.Subjects {
		out.Snapshot.Subjects = append(out.Snapshot.Subjects, scheduler.Subject{
			ID:           s.ID,
			Name:         deref(s.Name, s.ID),
			Level:        s.Level,
			WeeklyBlocks: s.WeeklyBlocks,
			Type:         deref(s.Type, ""),
			Color:        deref(s.Color, ""),
		})
	}
	for _, c := range f.Courses {
		course := scheduler.Course{
			ID:            c.ID,
			Name:          deref(c.Name, c.ID),
			Level:         c.Level,
			HeadTeacherID: deref(c.HeadTeacherID, ""),
			SubjectIDs:    c.SubjectIDs,
		}
		if c.StudentCount != nil {
			course.StudentCount = *c.StudentCount
		}
		out.Snapshot.Courses = append(out.Snapshot.Courses, course)
	}
	for _, t := range f.Teachers {
		contract := scheduler.ContractFull
		if t.Contract != nil {
			contract = scheduler.ContractType(*t.Contract)
		}
		out.Snapshot.Teachers = append(out.Snapshot.Teachers, scheduler.Teacher{
			ID:              t.ID,
			Name:            deref(t.Name, t.ID),
			Contract:        contract,
			WeeklyHours:     t.WeeklyHours,
			SubjectIDs:      t.SubjectIDs,
			AvailableBlocks: t.AvailableBlocks,
		})
	}
	for _, h := range f.Holidays {
		date, err := time.Parse(holidayLayout, h.Date)
		if err != nil {
			return nil, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid holiday date",
				Detail:   fmt.Sprintf("holiday %q must use YYYY-MM-DD", h.Date),
			}
		}
		out.Holidays = append(out.Holidays, scheduler.Holiday{Date: date, Description: deref(h.Description, "")})
	}
	return out, nil
}

func deref(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
