package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Partition splits a snapshot into independent sub-problems: two courses land in the same
// component when they can compete for a common teacher. Teachers qualified for nothing any
// course needs are dropped. Components are ordered by their smallest course id.
func Partition(snap Snapshot) ([]Snapshot, error) {
	p, err := validateSnapshot(defaultValidator, snap.Clone())
	if err != nil {
		return nil, err
	}
	return partition(p), nil
}

func partition(p *prepared) []Snapshot {
	snap := p.snapshot
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == x {
			return x
		}
		root := find(parent[x])
		parent[x] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	courseNode := func(id string) string { return "c:" + id }
	teacherNode := func(id string) string { return "t:" + id }

	for _, course := range snap.Courses {
		parent[courseNode(course.ID)] = courseNode(course.ID)
	}
	bySubject := make(map[string][]string)
	for _, teacher := range snap.Teachers {
		parent[teacherNode(teacher.ID)] = teacherNode(teacher.ID)
		for _, subjectID := range teacher.SubjectIDs {
			bySubject[subjectID] = append(bySubject[subjectID], teacher.ID)
		}
	}
	linked := make(map[string]bool)
	for _, req := range p.requirements {
		for _, teacherID := range bySubject[req.SubjectID] {
			union(courseNode(req.CourseID), teacherNode(teacherID))
			linked[teacherID] = true
		}
	}

	groups := make(map[string]*Snapshot)
	var roots []string
	courses := append([]Course(nil), snap.Courses...)
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	for _, course := range courses {
		root := find(courseNode(course.ID))
		group, ok := groups[root]
		if !ok {
			group = &Snapshot{Grid: snap.Grid, Subjects: snap.Subjects}
			groups[root] = group
			roots = append(roots, root)
		}
		group.Courses = append(group.Courses, course)
	}
	for _, teacher := range snap.Teachers {
		if !linked[teacher.ID] {
			continue
		}
		if group, ok := groups[find(teacherNode(teacher.ID))]; ok {
			group.Teachers = append(group.Teachers, teacher)
		}
	}

	out := make([]Snapshot, 0, len(roots))
	for _, root := range roots {
		out = append(out, *groups[root])
	}
	return out
}

// BatchResult pairs a batch member's result with its error.
type BatchResult struct {
	Result *Result
	Err    error
}

// SolveBatch solves independent snapshots concurrently with at most opts.Workers goroutines.
// Results keep the order of the input.
func (e *Engine) SolveBatch(ctx context.Context, snaps []Snapshot, opts Options) []BatchResult {
	opts = e.merge(opts)
	results := make([]BatchResult, len(snaps))
	p := pool.New().WithMaxGoroutines(opts.Workers)
	for i := range snaps {
		i := i
		p.Go(func() {
			res, err := e.Solve(ctx, snaps[i], opts)
			results[i] = BatchResult{Result: res, Err: err}
		})
	}
	p.Wait()
	return results
}

// SolveParallel partitions the snapshot into independent components, solves them in parallel
// and merges the outcomes. The merged result equals what a single solve would report for each
// component, since components share no course or teacher.
func (e *Engine) SolveParallel(ctx context.Context, snap Snapshot, opts Options) (*Result, error) {
	start := time.Now()
	opts = e.merge(opts)
	p, err := validateSnapshot(e.validate, snap.Clone())
	if err != nil {
		return nil, err
	}
	parts := partition(p)
	if len(parts) <= 1 {
		return e.Solve(ctx, snap, opts)
	}
	e.logger.Debug("solving timetable components", zap.Int("components", len(parts)), zap.Int("workers", opts.Workers))

	batch := e.SolveBatch(ctx, parts, opts)
	merged := &Result{Assignments: []Assignment{}, Unmet: []UnmetSession{}, Structural: []StructuralIssue{}}
	merged.Stats.Exhaustive = true
	for _, item := range batch {
		if item.Err != nil {
			return nil, item.Err
		}
		res := item.Result
		merged.Assignments = append(merged.Assignments, res.Assignments...)
		merged.Unmet = append(merged.Unmet, res.Unmet...)
		merged.Structural = append(merged.Structural, res.Structural...)
		merged.Conflicts = append(merged.Conflicts, res.Conflicts...)
		merged.Stats.TotalUnits += res.Stats.TotalUnits
		merged.Stats.Attempts += res.Stats.Attempts
		merged.Stats.Backtracks += res.Stats.Backtracks
		merged.Stats.IgnoredBlocks += res.Stats.IgnoredBlocks
		merged.Stats.BudgetExhausted = merged.Stats.BudgetExhausted || res.Stats.BudgetExhausted
		merged.Stats.Cancelled = merged.Stats.Cancelled || res.Stats.Cancelled
		merged.Stats.Exhaustive = merged.Stats.Exhaustive && (res.Stats.Exhaustive || res.Satisfied())
	}
	SortAssignments(merged.Assignments)
	sort.SliceStable(merged.Unmet, func(i, j int) bool {
		if merged.Unmet[i].CourseID != merged.Unmet[j].CourseID {
			return merged.Unmet[i].CourseID < merged.Unmet[j].CourseID
		}
		if merged.Unmet[i].SubjectID != merged.Unmet[j].SubjectID {
			return merged.Unmet[i].SubjectID < merged.Unmet[j].SubjectID
		}
		return merged.Unmet[i].Unit < merged.Unmet[j].Unit
	})
	merged.Stats.AssignedUnits = len(merged.Assignments)
	merged.Stats.UnmetUnits = len(merged.Unmet)
	merged.Stats.Components = len(parts)
	merged.Stats.Duration = time.Since(start)
	merged.Status = classify(merged)
	return merged, nil
}
