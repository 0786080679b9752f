package nlp

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownVar is returned when an expression references a variable that was
// not registered on the model.
var ErrUnknownVar = errors.New("nlp: unknown variable")

// Var is a handle to a decision variable registered on a Model.
type Var struct {
	idx int
}

// Index returns the position of the variable in solution vectors.
func (v Var) Index() int { return v.idx }

// VarDef describes a registered variable.
type VarDef struct {
	Name string
	Lo   float64
	Hi   float64
}

// Expr is a differentiable scalar expression over the model variables.
type Expr interface {
	Eval(x []float64) float64
	// AddGrad accumulates scale*∇Eval(x) into grad.
	AddGrad(x, grad []float64, scale float64)
}

// Linearizer is implemented by expressions that can report an exact linear
// form. ok is false when the expression is nonlinear at the current
// parameters.
type Linearizer interface {
	Linear() (LinExpr, bool)
}

// Constraint is a linear range constraint Lo <= Expr <= Hi. Equalities use
// Lo == Hi and one sided rows use an infinite bound.
type Constraint struct {
	Name string
	Expr LinExpr
	Lo   float64
	Hi   float64
}

// IsEquality reports whether the constraint pins its expression to a value.
func (c Constraint) IsEquality() bool { return c.Lo == c.Hi }

// Violation returns how far value lies outside [Lo, Hi].
func (c Constraint) Violation(x []float64) float64 {
	v := c.Expr.Eval(x)
	switch {
	case v < c.Lo:
		return c.Lo - v
	case v > c.Hi:
		return v - c.Hi
	}
	return 0
}

// Model is a nonlinear program with linear constraints and a single
// objective to minimise.
type Model struct {
	vars []VarDef
	cons []Constraint
	obj  Expr
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// AddVar registers a variable bounded by [lo, hi]. Infinite bounds are
// allowed.
func (m *Model) AddVar(name string, lo, hi float64) Var {
	m.vars = append(m.vars, VarDef{Name: name, Lo: lo, Hi: hi})
	return Var{idx: len(m.vars) - 1}
}

// AddConstraint registers lo <= e <= hi.
func (m *Model) AddConstraint(name string, e LinExpr, lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return fmt.Errorf("constraint %s: invalid range [%g, %g]", name, lo, hi)
	}
	for _, t := range e.Terms {
		if t.Var.idx < 0 || t.Var.idx >= len(m.vars) {
			return fmt.Errorf("constraint %s: %w", name, ErrUnknownVar)
		}
	}
	m.cons = append(m.cons, Constraint{Name: name, Expr: e, Lo: lo, Hi: hi})
	return nil
}

// Minimize sets the objective.
func (m *Model) Minimize(obj Expr) { m.obj = obj }

// NumVars returns the number of registered variables.
func (m *Model) NumVars() int { return len(m.vars) }

// Vars returns the registered variables in index order.
func (m *Model) Vars() []VarDef { return m.vars }

// Constraints returns the registered constraints.
func (m *Model) Constraints() []Constraint { return m.cons }

// Objective returns the objective expression or nil when none was set.
func (m *Model) Objective() Expr { return m.obj }

// LinearObjective reports the objective's linear form when it has one.
func (m *Model) LinearObjective() (LinExpr, bool) {
	l, ok := m.obj.(Linearizer)
	if !ok {
		return LinExpr{}, false
	}
	return l.Linear()
}

// Value returns the value of v in x.
func (m *Model) Value(v Var, x []float64) float64 { return x[v.idx] }

// MaxViolation returns the largest bound or constraint violation of x.
func (m *Model) MaxViolation(x []float64) float64 {
	worst := 0.0
	for i, d := range m.vars {
		if x[i] < d.Lo {
			worst = math.Max(worst, d.Lo-x[i])
		}
		if x[i] > d.Hi {
			worst = math.Max(worst, x[i]-d.Hi)
		}
	}
	for _, c := range m.cons {
		worst = math.Max(worst, c.Violation(x))
	}
	return worst
}

// Clip projects x onto the variable bounds in place.
func (m *Model) Clip(x []float64) {
	for i, d := range m.vars {
		if x[i] < d.Lo {
			x[i] = d.Lo
		}
		if x[i] > d.Hi {
			x[i] = d.Hi
		}
	}
}
