package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// lpSolve is the standard form LP backend. Tests override it to inject
// failures.
var lpSolve = lp.Simplex

// solveLP minimises c·y over the feasible region of r. Every free variable
// must have finite bounds.
//
// The standard form uses z = y - lo >= 0, one upper bound slack per
// variable and one slack per inequality row:
//
//	[ Aeq 0 0 ] [z]   [beq - Aeq·lo]
//	[ I   I 0 ] [u] = [hi - lo     ]
//	[ Ale 0 I ] [s]   [ble - Ale·lo]
func solveLP(r *reduced, c []float64, tol float64) ([]float64, Status, error) {
	n := r.dim()
	if n == 0 {
		if r.violation(nil) > presolveTol {
			return nil, StatusInfeasible, errors.New("lp: fixed point violates constraints")
		}
		return []float64{}, StatusOptimal, nil
	}
	for j := 0; j < n; j++ {
		if math.IsInf(r.lo[j], 0) || math.IsInf(r.hi[j], 0) {
			return nil, StatusError, fmt.Errorf("lp: variable %d has an infinite bound", r.free[j])
		}
	}
	nEq, nLe := len(r.eq), len(r.le)
	if nEq > n {
		return nil, StatusError, fmt.Errorf("lp: %d equality rows for %d variables", nEq, n)
	}
	rows := nEq + n + nLe
	cols := 2*n + nLe
	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	cost := make([]float64, cols)
	copy(cost, c)

	shift := func(row sparseRow) float64 {
		v := row.rhs
		for k, j := range row.idx {
			v -= row.coef[k] * r.lo[j]
		}
		return v
	}
	for i, row := range r.eq {
		for k, j := range row.idx {
			A.Set(i, j, row.coef[k])
		}
		b[i] = shift(row)
	}
	for j := 0; j < n; j++ {
		i := nEq + j
		A.Set(i, j, 1)
		A.Set(i, n+j, 1)
		b[i] = r.hi[j] - r.lo[j]
	}
	for k, row := range r.le {
		i := nEq + n + k
		for kk, j := range row.idx {
			A.Set(i, j, row.coef[kk])
		}
		A.Set(i, 2*n+k, 1)
		b[i] = shift(row)
	}

	_, z, err := lpSolve(cost, A, b, tol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, StatusInfeasible, err
		case errors.Is(err, lp.ErrUnbounded):
			return nil, StatusUnbounded, err
		default:
			return nil, StatusError, err
		}
	}
	y := make([]float64, n)
	for j := range y {
		y[j] = r.lo[j] + z[j]
	}
	r.clip(y)
	return y, StatusOptimal, nil
}
