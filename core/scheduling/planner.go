package scheduling

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/zacharyweiss/demandscheduling/core/logger"
	"github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/solver"
	"github.com/zacharyweiss/demandscheduling/internal/eventbus"
)

// Planner creates runs that share a solver, logger, metrics sink and event
// bus. The solver must be safe for concurrent use when Sweep runs more than
// one worker.
type Planner struct {
	Solver    solver.Solver
	Log       logger.Logger
	Sink      metrics.MetricsSink
	Events    *eventbus.TypedBus[metrics.RunEvent]
	Tolerance float64
}

// NewPlanner returns a Planner with no-op observability.
func NewPlanner(s solver.Solver) *Planner {
	return &Planner{
		Solver:    s,
		Log:       logger.NopLogger{},
		Sink:      metrics.NopSink{},
		Tolerance: InvariantTolerance,
	}
}

// NewRun prepares a run wired to the planner's collaborators.
func (p *Planner) NewRun(in Input) *Run {
	opts := []RunOption{WithTolerance(p.Tolerance)}
	if p.Log != nil {
		opts = append(opts, WithLogger(p.Log))
	}
	if p.Sink != nil {
		opts = append(opts, WithMetrics(p.Sink))
	}
	if p.Events != nil {
		opts = append(opts, WithEvents(p.Events))
	}
	return NewRun(in, p.Solver, opts...)
}

// Plan builds and solves in one call.
func (p *Planner) Plan(ctx context.Context, in Input) (*model.Schedule, error) {
	return p.NewRun(in).Solve(ctx)
}

// SweepPoint is the outcome of one sweep run.
type SweepPoint struct {
	Elasticity float64
	RunID      string
	Schedule   *model.Schedule
	Err        error
}

// Sweep solves in once per elasticity value, overriding every cohort's
// elasticity, with up to workers runs in parallel. Failed runs are reported
// in their SweepPoint; only cancellation of ctx aborts the sweep.
func (p *Planner) Sweep(ctx context.Context, in Input, elasticities []float64, workers int) ([]SweepPoint, error) {
	if workers <= 0 {
		workers = 1
	}
	points := make([]SweepPoint, len(elasticities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range elasticities {
		cohorts := slices.Clone(in.Cohorts)
		for k := range cohorts {
			cohorts[k].Elasticity = e
		}
		run := p.NewRun(Input{Cohorts: cohorts, Horizon: in.Horizon, Profile: in.Profile, Coupling: in.Coupling})
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := run.Solve(gctx)
			points[i] = SweepPoint{Elasticity: e, RunID: run.ID, Schedule: s, Err: err}
			if err := gctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return points, err
	}
	return points, nil
}
