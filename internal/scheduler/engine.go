// Package scheduler assigns weekly teaching sessions of courses to teachers and grid slots,
// reports requirements that cannot be met, and projects accepted timetables onto dates.
package scheduler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultAttemptBudget bounds search trials when the caller does not supply a budget.
const DefaultAttemptBudget = 200000

var defaultValidator = validator.New()

// Options tune one solve. Zero values fall back to the engine defaults.
type Options struct {
	// AttemptBudget caps search trials: every candidate placed and every requirement given up
	// counts as one, including trials later undone. It is not a count of backtracks.
	AttemptBudget int   `json:"attemptBudget"`
	Seed          int64 `json:"seed"`
	Workers       int   `json:"workers"`
}

// Engine runs solves. It holds no per-solve state and is safe for concurrent use.
type Engine struct {
	validate *validator.Validate
	logger   *zap.Logger
	defaults Options
}

// New constructs an engine with default options.
func New(logger *zap.Logger, defaults Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.AttemptBudget <= 0 {
		defaults.AttemptBudget = DefaultAttemptBudget
	}
	if defaults.Workers <= 0 {
		defaults.Workers = 1
	}
	return &Engine{validate: defaultValidator, logger: logger, defaults: defaults}
}

func (e *Engine) merge(opts Options) Options {
	if opts.AttemptBudget <= 0 {
		opts.AttemptBudget = e.defaults.AttemptBudget
	}
	if opts.Seed == 0 {
		opts.Seed = e.defaults.Seed
	}
	if opts.Workers <= 0 {
		opts.Workers = e.defaults.Workers
	}
	return opts
}

// Solve validates the snapshot, builds the constraint index and searches for a conflict-free
// assignment. Malformed input yields a *ValidationError; every other outcome is a Result.
func (e *Engine) Solve(ctx context.Context, snap Snapshot, opts Options) (*Result, error) {
	start := time.Now()
	opts = e.merge(opts)
	snap = snap.Clone()

	p, err := validateSnapshot(e.validate, snap)
	if err != nil {
		return nil, err
	}
	ix := newIndex(p, opts.Seed)
	pc := runPrecheck(ix)
	if len(pc.issues) > 0 {
		e.logger.Debug("structural issues detected", zap.Int("issues", len(pc.issues)), zap.Int("withheld", len(pc.withheld)))
	}

	out := runSearch(ctx, ix, pc, opts.AttemptBudget)
	res := buildResult(ix, pc, out)
	res.Stats.IgnoredBlocks = p.ignored
	res.Conflicts = Audit(snap, res.Assignments)
	if len(res.Conflicts) > 0 {
		e.logger.Error("assignment set violates hard constraints", zap.Int("conflicts", len(res.Conflicts)))
	}
	res.Stats.Duration = time.Since(start)

	e.logger.Debug("timetable solved",
		zap.String("status", string(res.Status)),
		zap.Int("assigned", res.Stats.AssignedUnits),
		zap.Int("unmet", res.Stats.UnmetUnits),
		zap.Int("attempts", res.Stats.Attempts),
		zap.Bool("budget_exhausted", res.Stats.BudgetExhausted),
		zap.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

// Validate checks the snapshot without solving.
func (e *Engine) Validate(snap Snapshot) error {
	_, err := validateSnapshot(e.validate, snap)
	return err
}
