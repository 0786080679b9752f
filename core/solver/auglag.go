package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// AugLag is a Powell-Hestenes-Rockafellar augmented Lagrangian method. Each
// outer iteration minimises the augmented objective with L-BFGS, then
// updates the multipliers and grows the penalty when feasibility stalls.
type AugLag struct {
	MaxOuter   int     // outer iterations
	MaxInner   int     // L-BFGS major iterations per outer iteration
	FeasTol    float64 // acceptable constraint violation
	OptTol     float64 // relative objective change treated as converged
	InitRho    float64
	MaxRho     float64
	GradThresh float64
}

// DefaultAugLag returns the settings used by the orchestrator.
func DefaultAugLag() AugLag {
	return AugLag{
		MaxOuter:   60,
		MaxInner:   500,
		FeasTol:    1e-9,
		OptTol:     1e-8,
		InitRho:    10,
		MaxRho:     1e9,
		GradThresh: 1e-9,
	}
}

type localResult struct {
	y          []float64
	f          float64
	viol       float64
	iterations int
	status     Status
}

// alState carries the multipliers of one run. Bounds are treated as
// inequality rows alongside the model's own.
type alState struct {
	obj  *objective
	eq   []sparseRow
	ineq []sparseRow
	lam  []float64
	mu   []float64
	rho  float64
}

func newALState(obj *objective, r *reduced, rho float64) *alState {
	s := &alState{obj: obj, eq: r.eq, rho: rho}
	s.ineq = append(s.ineq, r.le...)
	for j := 0; j < r.dim(); j++ {
		if !math.IsInf(r.hi[j], 1) {
			s.ineq = append(s.ineq, sparseRow{idx: []int{j}, coef: []float64{1}, rhs: r.hi[j]})
		}
		if !math.IsInf(r.lo[j], -1) {
			s.ineq = append(s.ineq, sparseRow{idx: []int{j}, coef: []float64{-1}, rhs: -r.lo[j]})
		}
	}
	s.lam = make([]float64, len(s.eq))
	s.mu = make([]float64, len(s.ineq))
	return s
}

func (s *alState) value(y []float64) float64 {
	v := s.obj.value(y)
	for i, row := range s.eq {
		h := row.dot(y) - row.rhs
		v += s.lam[i]*h + 0.5*s.rho*h*h
	}
	for k, row := range s.ineq {
		t := math.Max(0, s.mu[k]+s.rho*(row.dot(y)-row.rhs))
		v += (t*t - s.mu[k]*s.mu[k]) / (2 * s.rho)
	}
	return v
}

func (s *alState) grad(grad, y []float64) {
	s.obj.grad(grad, y)
	for i, row := range s.eq {
		w := s.lam[i] + s.rho*(row.dot(y)-row.rhs)
		for k, j := range row.idx {
			grad[j] += w * row.coef[k]
		}
	}
	for k, row := range s.ineq {
		t := math.Max(0, s.mu[k]+s.rho*(row.dot(y)-row.rhs))
		if t == 0 {
			continue
		}
		for kk, j := range row.idx {
			grad[j] += t * row.coef[kk]
		}
	}
}

func (s *alState) update(y []float64) {
	for i, row := range s.eq {
		s.lam[i] += s.rho * (row.dot(y) - row.rhs)
	}
	for k, row := range s.ineq {
		s.mu[k] = math.Max(0, s.mu[k]+s.rho*(row.dot(y)-row.rhs))
	}
}

// minimize runs the method from y0 on the reduced problem.
func (a AugLag) minimize(ctx context.Context, r *reduced, obj *objective, y0 []float64) (localResult, error) {
	y := append([]float64(nil), y0...)
	out := localResult{y: y, status: StatusIterationLimit}
	if r.dim() == 0 {
		out.f = obj.value(y)
		out.status = StatusLocallyOptimal
		return out, nil
	}

	st := newALState(obj, r, a.InitRho)
	problem := optimize.Problem{Func: st.value, Grad: st.grad}
	prevViol := math.Inf(1)
	prevF := math.Inf(1)

	for it := 0; it < a.MaxOuter; it++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		settings := &optimize.Settings{
			GradientThreshold: a.GradThresh,
			MajorIterations:   a.MaxInner,
			Converger:         &optimize.FunctionConverge{Absolute: 1e-12, Relative: 1e-12, Iterations: 25},
		}
		res, err := optimize.Minimize(problem, y, settings, &optimize.LBFGS{})
		switch {
		case res != nil && allFinite(res.X):
			copy(y, res.X)
		case err != nil:
			out.status = StatusError
			return out, nil
		}

		out.iterations = it + 1
		out.viol = r.violation(y)
		out.f = obj.value(y)
		st.update(y)

		if out.viol <= a.FeasTol && math.Abs(out.f-prevF) <= a.OptTol*math.Max(1, math.Abs(out.f)) {
			out.status = StatusLocallyOptimal
			return out, nil
		}
		if out.viol > 0.25*prevViol {
			st.rho = math.Min(st.rho*10, a.MaxRho)
		}
		prevViol = out.viol
		prevF = out.f
	}
	if out.viol <= a.FeasTol {
		out.status = StatusLocallyOptimal
	}
	return out, nil
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return len(x) > 0
}
