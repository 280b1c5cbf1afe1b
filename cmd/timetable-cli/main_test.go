package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

const snapshot = `
grid {
  days            = [MON, WED]
  periods_per_day = 2
}

subject "math" {
  name          = "Mathematics"
  level         = "basic"
  weekly_blocks = 2
}

course "1A" {
  level = "basic"
}

teacher "t1" {
  name         = "Ana"
  weekly_hours = 4
  subjects     = ["math"]
  available    = blocks([MON, WED], 1, 2)
}

holiday "2024-09-04" {}
`

func writeSnapshot(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRunSolvesAndProjects(t *testing.T) {
	path := writeSnapshot(t, snapshot)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), &stdout, &stderr, []string{"--seed", "3", "--course", "1A", "--from", "2024-09-02", "--to", "2024-09-08", path})
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.NotNil(t, out.Result)
	assert.Equal(t, scheduler.StatusSatisfied, out.Result.Status)
	assert.Len(t, out.Result.Assignments, 2)
	// Wednesday is a holiday, so only Monday sessions remain.
	monday := 0
	for _, a := range out.Result.Assignments {
		if a.Slot.Day == 1 {
			monday++
		}
	}
	require.Len(t, out.Schedule, monday)
	for _, occ := range out.Schedule {
		assert.Equal(t, 1, occ.Slot.Day)
		assert.Equal(t, "2024-09-02", occ.Date.Format(dateLayout))
		assert.Equal(t, "Mathematics", occ.SubjectName)
	}
}

func TestRunWritesOutputDir(t *testing.T) {
	path := writeSnapshot(t, snapshot)
	outDir := t.TempDir()
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), &stdout, &stderr, []string{"--out-dir", outDir, "--course", "1A", "--from", "2024-09-02", "--to", "2024-09-03", path})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(outDir, "result.json"))
	csv, err := os.ReadFile(filepath.Join(outDir, "schedule_1A_2024-09-02_2024-09-03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "Date,Block,Subject,Teacher\n")
}

func TestRunValidateOnly(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), &stdout, &stderr, []string{"--validate-only", writeSnapshot(t, snapshot)}))
	assert.Equal(t, "snapshot is valid\n", stdout.String())

	bad := `
subject "math" {
  level         = "basic"
  weekly_blocks = 0
}
`
	err := run(context.Background(), &stdout, &stderr, []string{"--validate-only", writeSnapshot(t, bad)})
	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.code)
}

func TestRunFlagErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cases := map[string][]string{
		"no file":          {},
		"course w/o range": {"--course", "1A", "x.hcl"},
		"unknown flag":     {"--nope", "x.hcl"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			err := run(context.Background(), &stdout, &stderr, args)
			var exitErr *exitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.code)
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.NoError(t, run(context.Background(), &stdout, &stderr, []string{"--help"}))
	assert.Contains(t, stderr.String(), "Usage: timetable-cli")
}
