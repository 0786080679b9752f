package config

import (
	"fmt"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/logger"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
	"github.com/zacharyweiss/demandscheduling/core/solver"
)

// SolverConfig tunes the solve orchestration.
type SolverConfig struct {
	Method    string        `json:"method"`
	Starts    int           `json:"starts"`
	Seed      int64         `json:"seed"`
	Timeout   time.Duration `json:"timeout"`
	MaxOuter  int           `json:"max_outer"`
	MaxInner  int           `json:"max_inner"`
	FeasTol   float64       `json:"feas_tol"`
	AcceptTol float64       `json:"accept_tol"`
	// Tolerance is the slack allowed when checking solved schedules.
	Tolerance float64 `json:"tolerance"`
	// Workers bounds parallel runs during sweeps.
	Workers int `json:"workers"`
}

// DefaultSolver returns the solver section used when none is configured.
// Starts is only defaulted here since starts: 0 disables random starts.
func DefaultSolver() SolverConfig {
	c := SolverConfig{Starts: solver.NewOrchestrator(nil).Starts}
	c.SetDefaults()
	return c
}

// SetDefaults applies sane defaults to zero fields other than Starts.
func (c *SolverConfig) SetDefaults() {
	d := solver.NewOrchestrator(nil)
	if c.Method == "" {
		c.Method = d.Method
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.MaxOuter == 0 {
		c.MaxOuter = d.Local.MaxOuter
	}
	if c.MaxInner == 0 {
		c.MaxInner = d.Local.MaxInner
	}
	if c.FeasTol == 0 {
		c.FeasTol = d.Local.FeasTol
	}
	if c.AcceptTol == 0 {
		c.AcceptTol = d.AcceptTol
	}
	if c.Tolerance == 0 {
		c.Tolerance = scheduling.InvariantTolerance
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

// Validate checks mandatory fields.
func (c SolverConfig) Validate() error {
	switch c.Method {
	case solver.MethodAuto, solver.MethodSimplex, solver.MethodAugLag:
	default:
		return fmt.Errorf("unknown solver method %s", c.Method)
	}
	if c.Starts < 0 {
		return fmt.Errorf("solver.starts must be >= 0")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("solver.timeout must be >= 0")
	}
	if c.FeasTol <= 0 || c.AcceptTol <= 0 || c.Tolerance <= 0 {
		return fmt.Errorf("solver tolerances must be positive")
	}
	if c.AcceptTol > c.Tolerance {
		return fmt.Errorf("solver.accept_tol %g exceeds tolerance %g", c.AcceptTol, c.Tolerance)
	}
	if c.Workers < 1 {
		return fmt.Errorf("solver.workers must be >= 1")
	}
	return nil
}

// Orchestrator builds the configured solver.
func (c SolverConfig) Orchestrator(log logger.Logger) *solver.Orchestrator {
	o := solver.NewOrchestrator(log)
	o.Method = c.Method
	o.Starts = c.Starts
	o.Seed = c.Seed
	o.Timeout = c.Timeout
	o.AcceptTol = c.AcceptTol
	o.Local.MaxOuter = c.MaxOuter
	o.Local.MaxInner = c.MaxInner
	o.Local.FeasTol = c.FeasTol
	return o
}
