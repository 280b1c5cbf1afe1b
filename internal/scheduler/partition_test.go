package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLevelSnapshot() Snapshot {
	return Snapshot{
		Grid: DefaultGrid(),
		Courses: []Course{
			{ID: "c2", Level: "senior"},
			{ID: "c1", Level: "junior"},
			{ID: "c3", Level: "junior"},
		},
		Subjects: []Subject{
			{ID: "hist", Level: "senior", WeeklyBlocks: 2},
			{ID: "math", Level: "junior", WeeklyBlocks: 1},
		},
		Teachers: []Teacher{
			{ID: "t-hist", WeeklyHours: 4, SubjectIDs: []string{"hist"}, AvailableBlocks: []string{"MON-1", "TUE-1"}},
			{ID: "t-math", WeeklyHours: 4, SubjectIDs: []string{"math"}, AvailableBlocks: []string{"WED-2", "THU-2"}},
			{ID: "t-idle", WeeklyHours: 4, AvailableBlocks: []string{"FRI-1"}},
		},
	}
}

func TestPartitionSplitsIndependentCourses(t *testing.T) {
	parts, err := Partition(twoLevelSnapshot())
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Len(t, parts[0].Courses, 2)
	assert.Equal(t, "c1", parts[0].Courses[0].ID)
	assert.Equal(t, "c3", parts[0].Courses[1].ID)
	require.Len(t, parts[0].Teachers, 1)
	assert.Equal(t, "t-math", parts[0].Teachers[0].ID)

	require.Len(t, parts[1].Courses, 1)
	assert.Equal(t, "c2", parts[1].Courses[0].ID)
	require.Len(t, parts[1].Teachers, 1)
	assert.Equal(t, "t-hist", parts[1].Teachers[0].ID)
}

func TestSolveParallelMatchesSequentialSolve(t *testing.T) {
	snap := twoLevelSnapshot()
	engine := New(nil, Options{Workers: 2})

	sequential, err := engine.Solve(context.Background(), snap, Options{})
	require.NoError(t, err)
	parallel, err := engine.SolveParallel(context.Background(), snap, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusSatisfied, parallel.Status)
	assert.Equal(t, 2, parallel.Stats.Components)
	assert.Equal(t, sequential.Assignments, parallel.Assignments)
	assert.Equal(t, sequential.Stats.TotalUnits, parallel.Stats.TotalUnits)
	assert.Empty(t, parallel.Conflicts)
}

func TestSolveBatchKeepsInputOrder(t *testing.T) {
	engine := New(nil, Options{Workers: 3})
	snaps := []Snapshot{sharedTeacherSnapshot(), {Grid: Grid{}}, twoLevelSnapshot()}

	results := engine.SolveBatch(context.Background(), snaps, Options{})
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.Equal(t, StatusPartiallySatisfied, results[0].Result.Status)
	assert.Error(t, results[1].Err)
	require.NoError(t, results[2].Err)
	assert.Equal(t, StatusSatisfied, results[2].Result.Status)
}
