// Command timetable-cli solves an HCL snapshot file offline and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/snapshotfile"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

const dateLayout = "2006-01-02"

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

type options struct {
	path     string
	budget   int
	seed     int64
	workers  int
	course   string
	from     string
	to       string
	days     string
	periods  int
	outDir   string
	validate bool
	verbose  bool
}

type output struct {
	Result   *scheduler.Result      `json:"result,omitempty"`
	Schedule []scheduler.Occurrence `json:"schedule,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	flags := pflag.NewFlagSet("timetable-cli", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: timetable-cli [options] SNAPSHOT.hcl")
		flags.PrintDefaults()
	}
	flags.IntVar(&opts.budget, "budget", 0, "search trial budget, counting placements tried rather than backtracks (0 uses the engine default)")
	flags.Int64Var(&opts.seed, "seed", 0, "seed for randomized tie-breaking")
	flags.IntVar(&opts.workers, "workers", 1, "components solved in parallel")
	flags.StringVar(&opts.course, "course", "", "course to project over --from/--to")
	flags.StringVar(&opts.from, "from", "", "first projected date (YYYY-MM-DD)")
	flags.StringVar(&opts.to, "to", "", "last projected date (YYYY-MM-DD)")
	flags.StringVar(&opts.days, "days", "1,2,3,4,5", "grid days when the file has no grid block")
	flags.IntVar(&opts.periods, "periods", 8, "periods per day when the file has no grid block")
	flags.StringVar(&opts.outDir, "out-dir", "", "also write result.json and the projected schedule CSV here")
	flags.BoolVar(&opts.validate, "validate-only", false, "only check the snapshot for malformed input")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log search progress to stderr")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil
		}
		return nil, &exitError{code: 2, msg: err.Error()}
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return nil, &exitError{code: 2, msg: "exactly one snapshot file is required"}
	}
	opts.path = flags.Arg(0)
	if opts.course != "" && (opts.from == "" || opts.to == "") {
		return nil, &exitError{code: 2, msg: "--course requires --from and --to"}
	}
	return opts, nil
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	opts, err := parseFlags(args, stderr)
	if err != nil || opts == nil {
		return err
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}

	file, err := snapshotfile.Load(opts.path, scheduler.NewGrid(config.ParseDays(opts.days), opts.periods))
	if err != nil {
		return err
	}

	engine := scheduler.New(logger, scheduler.Options{AttemptBudget: opts.budget, Seed: opts.seed, Workers: opts.workers})
	if opts.validate {
		if err := engine.Validate(file.Snapshot); err != nil {
			return &exitError{code: 3, msg: err.Error()}
		}
		fmt.Fprintln(stdout, "snapshot is valid")
		return nil
	}

	res, err := engine.SolveParallel(ctx, file.Snapshot, scheduler.Options{})
	if err != nil {
		return &exitError{code: 3, msg: err.Error()}
	}

	out := output{Result: res}
	if opts.course != "" {
		rng, err := parseRange(opts.from, opts.to)
		if err != nil {
			return &exitError{code: 2, msg: err.Error()}
		}
		out.Schedule, err = scheduler.ProjectSchedule(file.Snapshot, res.Assignments, opts.course, rng, scheduler.NewHolidaySet(file.Holidays))
		if err != nil {
			return err
		}
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		if err := writeFiles(opts, payload, out.Schedule); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(stdout, string(payload))
	return err
}

func writeFiles(opts *options, payload []byte, schedule []scheduler.Occurrence) error {
	store, err := storage.NewLocalStorage(opts.outDir)
	if err != nil {
		return err
	}
	if _, err := store.Save("result.json", payload); err != nil {
		return err
	}
	if opts.course == "" {
		return nil
	}

	data := export.Dataset{Headers: []string{"Date", "Block", "Subject", "Teacher"}}
	for _, occ := range schedule {
		data.Rows = append(data.Rows, map[string]string{
			"Date":    occ.Date.Format(dateLayout),
			"Block":   occ.Slot.String(),
			"Subject": occ.SubjectName,
			"Teacher": occ.TeacherName,
		})
	}
	csv, err := export.NewCSVExporter().Render(data)
	if err != nil {
		return err
	}
	_, err = store.Save(fmt.Sprintf("schedule_%s_%s_%s.csv", opts.course, opts.from, opts.to), csv)
	return err
}

func parseRange(from, to string) (scheduler.DateRange, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return scheduler.DateRange{}, fmt.Errorf("invalid --from: %w", err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return scheduler.DateRange{}, fmt.Errorf("invalid --to: %w", err)
	}
	return scheduler.DateRange{Start: start, End: end}, nil
}
