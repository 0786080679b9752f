package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zacharyweiss/demandscheduling/core/logger"
	"github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/solver"
	"github.com/zacharyweiss/demandscheduling/internal/eventbus"
)

// State is the lifecycle position of a Run.
type State int

const (
	StateUnbuilt State = iota
	StateBuilt
	StateSolving
	StateSolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateBuilt:
		return "built"
	case StateSolving:
		return "solving"
	case StateSolved:
		return "solved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateSolved || s == StateFailed }

// Run drives one build and solve: Unbuilt → Built → Solving → Solved or
// Failed. A build error moves straight to Failed. Runs are not retried and
// are not safe for concurrent use; independent runs may execute in
// parallel.
type Run struct {
	ID string

	input    Input
	solver   solver.Solver
	state    State
	problem  *Problem
	result   *solver.Result
	schedule *model.Schedule
	err      error
	tol      float64

	log  logger.Logger
	sink metrics.MetricsSink
	bus  *eventbus.TypedBus[metrics.RunEvent]
}

// RunOption customises a Run.
type RunOption func(*Run)

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) RunOption { return func(r *Run) { r.log = l } }

// WithMetrics records every transition on s.
func WithMetrics(s metrics.MetricsSink) RunOption { return func(r *Run) { r.sink = s } }

// WithEvents publishes every transition on bus.
func WithEvents(bus *eventbus.TypedBus[metrics.RunEvent]) RunOption {
	return func(r *Run) { r.bus = bus }
}

// WithTolerance overrides InvariantTolerance.
func WithTolerance(tol float64) RunOption { return func(r *Run) { r.tol = tol } }

// WithRunID sets the run identifier instead of a random UUID.
func WithRunID(id string) RunOption { return func(r *Run) { r.ID = id } }

// NewRun prepares a run in the Unbuilt state.
func NewRun(in Input, s solver.Solver, opts ...RunOption) *Run {
	r := &Run{
		ID:     uuid.NewString(),
		input:  in,
		solver: s,
		tol:    InvariantTolerance,
		log:    logger.NopLogger{},
		sink:   metrics.NopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Run) State() State { return r.state }

// Err returns the error that moved the run to Failed.
func (r *Run) Err() error { return r.err }

// Problem returns the built problem, or nil before Build succeeded.
func (r *Run) Problem() *Problem { return r.problem }

// Schedule returns the solved schedule. It is nil unless the run is Solved.
func (r *Run) Schedule() *model.Schedule { return r.schedule }

// Build constructs the model.
func (r *Run) Build() error {
	if r.state != StateUnbuilt {
		return fmt.Errorf("%w: build from %s", ErrInvalidTransition, r.state)
	}
	p, err := Build(r.input)
	if err != nil {
		r.fail(err, 0)
		return err
	}
	r.problem = p
	r.transition(StateBuilt, 0)
	r.log.Debugw("model built", map[string]any{
		"run":         r.ID,
		"cohorts":     len(p.Cohorts),
		"horizon":     p.Horizon,
		"vars":        p.Model.NumVars(),
		"constraints": len(p.Model.Constraints()),
	})
	return nil
}

// Solve builds the model when needed, hands it to the solver once and
// extracts the schedule. Any failure leaves the run Failed with no schedule.
func (r *Run) Solve(ctx context.Context) (*model.Schedule, error) {
	if r.state == StateUnbuilt {
		if err := r.Build(); err != nil {
			return nil, err
		}
	}
	if r.state != StateBuilt {
		return nil, fmt.Errorf("%w: solve from %s", ErrInvalidTransition, r.state)
	}
	r.transition(StateSolving, 0)
	start := time.Now()
	res, err := r.solver.Solve(ctx, r.problem.Model, r.problem.InitialGuesses())
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSolveFailed, err)
		r.fail(err, elapsed)
		return nil, err
	}
	r.result = res
	s, err := r.problem.Extract(res, r.tol)
	if err != nil {
		r.fail(err, elapsed)
		return nil, err
	}
	s.RunID = r.ID
	r.schedule = s
	r.transition(StateSolved, elapsed)
	if err := metrics.RecordSchedule(r.sink, metrics.ScheduleEvent{Schedule: s, Time: time.Now()}); err != nil {
		r.log.Warnf("run %s: record schedule: %v", r.ID, err)
	}
	r.log.Infof("run %s solved: cost %.4f, status %s, method %s, %d starts in %s",
		r.ID, s.Cost, s.Status, s.Method, s.Starts, elapsed)
	return s, nil
}

func (r *Run) fail(err error, elapsed time.Duration) {
	r.err = err
	r.transition(StateFailed, elapsed)
	r.log.Errorf("run %s failed: %v", r.ID, err)
}

func (r *Run) transition(to State, elapsed time.Duration) {
	r.state = to
	ev := metrics.RunEvent{
		RunID:    r.ID,
		State:    to.String(),
		Cohorts:  len(r.input.Cohorts),
		Horizon:  r.input.Horizon,
		Duration: elapsed,
		Time:     time.Now(),
	}
	if r.result != nil {
		ev.Status = r.result.Status.String()
		ev.Method = r.result.Method
		if r.result.Status.Success() {
			ev.Objective = r.result.Objective
		}
	}
	if r.err != nil {
		ev.Err = r.err.Error()
	}
	if err := r.sink.RecordRun(ev); err != nil {
		r.log.Warnf("run %s: record %s: %v", r.ID, to, err)
	}
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}
