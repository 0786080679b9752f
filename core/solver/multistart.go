package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/logger"
	"github.com/zacharyweiss/demandscheduling/core/nlp"
)

// Method names accepted by the orchestrator.
const (
	MethodAuto    = "auto"
	MethodSimplex = "simplex"
	MethodAugLag  = "auglag"
)

// Orchestrator picks a method for the model and, for nonlinear objectives,
// runs the local solver from several starting points and keeps the best.
//
// The first start is always the vertex returned by an LP over the
// linearised objective, which doubles as a feasibility check. Supplied
// starts follow, then Starts seeded random points.
type Orchestrator struct {
	Method    string
	Starts    int
	Seed      int64
	Timeout   time.Duration
	LPTol     float64
	AcceptTol float64
	Local     AugLag
	Log       logger.Logger
}

// NewOrchestrator returns an orchestrator with default settings.
func NewOrchestrator(log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Orchestrator{
		Method:    MethodAuto,
		Starts:    4,
		Seed:      1,
		LPTol:     1e-9,
		AcceptTol: 1e-7,
		Local:     DefaultAugLag(),
		Log:       log,
	}
}

// Solve implements Solver.
func (o *Orchestrator) Solve(ctx context.Context, m *nlp.Model, starts [][]float64) (*Result, error) {
	if m.Objective() == nil {
		return nil, ErrNoObjective
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	r, err := presolve(m)
	if err != nil {
		if errors.Is(err, errInfeasible) {
			return &Result{Status: StatusInfeasible, Method: "presolve", Message: err.Error()}, nil
		}
		return nil, err
	}
	o.logger().Debugw("presolve", map[string]any{
		"vars":  m.NumVars(),
		"free":  r.dim(),
		"eq":    len(r.eq),
		"ineq":  len(r.le),
		"fixed": m.NumVars() - r.dim(),
	})
	obj := newObjective(m.Objective(), r)

	method := strings.ToLower(o.Method)
	lin, linear := m.LinearObjective()
	switch method {
	case "", MethodAuto:
		if linear {
			return o.solveLinear(r, obj, lin)
		}
	case MethodSimplex:
		if !linear {
			return &Result{Status: StatusError, Method: MethodSimplex, Message: "objective is not linear"}, nil
		}
		return o.solveLinear(r, obj, lin)
	case MethodAugLag:
	default:
		return nil, fmt.Errorf("solver: unknown method %q", o.Method)
	}
	res, err := o.multistart(ctx, r, obj, starts)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	return res, nil
}

func (o *Orchestrator) logger() logger.Logger {
	if o.Log == nil {
		return logger.NopLogger{}
	}
	return o.Log
}

func (o *Orchestrator) solveLinear(r *reduced, obj *objective, lin nlp.LinExpr) (*Result, error) {
	c := r.restrict(lin.Coefficients(r.n))
	y, status, err := solveLP(r, c, o.LPTol)
	res := &Result{Status: status, Method: MethodSimplex, Starts: 1, Iterations: 1}
	if err != nil {
		res.Message = err.Error()
		o.logger().Warnf("simplex ended with %s: %v", status, err)
		return res, nil
	}
	res.X = obj.full(y)
	res.Objective = obj.value(y)
	return res, nil
}

func (o *Orchestrator) multistart(ctx context.Context, r *reduced, obj *objective, supplied [][]float64) (*Result, error) {
	origin := make([]float64, r.dim())
	r.clip(origin)
	grad := make([]float64, r.dim())
	obj.grad(grad, origin)

	vertex, status, err := solveLP(r, grad, o.LPTol)
	switch {
	case status == StatusInfeasible:
		return &Result{Status: StatusInfeasible, Method: MethodAugLag, Message: err.Error()}, nil
	case err != nil:
		o.logger().Warnf("feasibility LP ended with %s: %v", status, err)
	}

	var starts [][]float64
	if vertex != nil {
		starts = append(starts, vertex)
	}
	for _, s := range supplied {
		if len(s) != r.n {
			o.logger().Warnf("ignoring start with %d values, model has %d variables", len(s), r.n)
			continue
		}
		y := r.restrict(s)
		r.clip(y)
		starts = append(starts, y)
	}
	rng := rand.New(rand.NewSource(o.Seed))
	for k := 0; k < o.Starts; k++ {
		y := make([]float64, r.dim())
		for j := range y {
			y[j] = r.lo[j] + rng.Float64()*(r.hi[j]-r.lo[j])
		}
		r.clip(y)
		starts = append(starts, y)
	}

	out := &Result{Status: StatusIterationLimit, Method: MethodAugLag}
	var best *localResult
	for k, y0 := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lr, err := o.Local.minimize(ctx, r, obj, y0)
		if err != nil {
			return nil, err
		}
		out.Starts++
		out.Iterations += lr.iterations
		o.logger().Debugw("local solve", map[string]any{
			"start":      k,
			"status":     lr.status.String(),
			"objective":  lr.f,
			"violation":  lr.viol,
			"iterations": lr.iterations,
		})
		if lr.viol > o.AcceptTol {
			continue
		}
		if best == nil || lr.f < best.f {
			cp := lr
			best = &cp
		}
	}
	if best == nil {
		out.Message = fmt.Sprintf("no start reached violation <= %g", o.AcceptTol)
		return out, nil
	}

	o.polish(r, obj, best)
	if best.viol > o.AcceptTol {
		out.Message = fmt.Sprintf("best point violates constraints by %g", best.viol)
		return out, nil
	}
	out.Status = StatusLocallyOptimal
	out.X = obj.full(best.y)
	out.Objective = best.f
	return out, nil
}

// polish solves an LP on the objective gradient inside a small box around
// the local solution. It restores exact feasibility and snaps coordinates to
// active bounds; the point only moves when the objective does not get worse.
func (o *Orchestrator) polish(r *reduced, obj *objective, lr *localResult) {
	grad := make([]float64, r.dim())
	obj.grad(grad, lr.y)
	lo := make([]float64, r.dim())
	hi := make([]float64, r.dim())
	slack := 1e-9
	if lr.viol > o.Local.FeasTol {
		slack = 1e-6
	}
	for _, delta := range []float64{1e-3, 1e-5, 1e-7} {
		for j, v := range lr.y {
			d := delta * math.Max(1, math.Abs(v))
			lo[j], hi[j] = v-d, v+d
		}
		y, _, err := solveLP(r.boxed(lo, hi), grad, o.LPTol)
		if err != nil {
			continue
		}
		viol := r.violation(y)
		f := obj.value(y)
		if viol <= o.Local.FeasTol && f <= lr.f+slack*math.Max(1, math.Abs(lr.f)) {
			lr.y, lr.f, lr.viol = y, f, viol
			return
		}
	}
}
