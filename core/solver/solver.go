package solver

import (
	"context"
	"errors"

	"github.com/zacharyweiss/demandscheduling/core/nlp"
)

// ErrNoObjective is returned when a model has no objective.
var ErrNoObjective = errors.New("solver: model has no objective")

// Status reports how a solve ended.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusLocallyOptimal
	StatusInfeasible
	StatusUnbounded
	StatusIterationLimit
	StatusError
)

var statusNames = map[Status]string{
	StatusUnknown:        "unknown",
	StatusOptimal:        "optimal",
	StatusLocallyOptimal: "locally_optimal",
	StatusInfeasible:     "infeasible",
	StatusUnbounded:      "unbounded",
	StatusIterationLimit: "iteration_limit",
	StatusError:          "error",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Success reports whether X holds a usable solution.
func (s Status) Success() bool {
	return s == StatusOptimal || s == StatusLocallyOptimal
}

// Result is the outcome of a solve. X and Objective are only meaningful when
// Status.Success() is true.
type Result struct {
	Status     Status
	X          []float64
	Objective  float64
	Method     string
	Starts     int
	Iterations int
	Message    string
}

// Solver finds a minimiser of a model. starts are optional initial points in
// full variable space. A non-nil error means the solve could not run at all
// (cancellation, malformed model); solver outcomes are reported in Result.
type Solver interface {
	Solve(ctx context.Context, m *nlp.Model, starts [][]float64) (*Result, error)
}
