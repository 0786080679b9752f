package solver

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/zacharyweiss/demandscheduling/core/nlp"
)

var errInfeasible = errors.New("presolve: infeasible")

// presolveTol is the slack allowed when checking emptied rows and crossed
// bounds.
const presolveTol = 1e-9

// sparseRow is a·y in reduced variable space compared against rhs.
type sparseRow struct {
	name string
	idx  []int
	coef []float64
	rhs  float64
}

func (r sparseRow) dot(y []float64) float64 {
	s := 0.0
	for k, j := range r.idx {
		s += r.coef[k] * y[j]
	}
	return s
}

// reduced is a model with singleton rows folded into bounds and fixed
// variables substituted out. Equality rows are a·y = rhs and inequality rows
// a·y <= rhs.
type reduced struct {
	n     int
	free  []int
	pos   []int
	fixed []float64
	lo    []float64
	hi    []float64
	eq    []sparseRow
	le    []sparseRow
}

type workRow struct {
	name   string
	coef   map[int]float64
	lo, hi float64
	active bool
}

func presolve(m *nlp.Model) (*reduced, error) {
	n := m.NumVars()
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i, d := range m.Vars() {
		lo[i], hi[i] = d.Lo, d.Hi
		if lo[i] > hi[i]+presolveTol {
			return nil, fmt.Errorf("%w: variable %s bounds [%g, %g]", errInfeasible, d.Name, d.Lo, d.Hi)
		}
	}
	isFixed := func(i int) bool { return hi[i]-lo[i] <= presolveTol }

	rows := make([]*workRow, 0, len(m.Constraints()))
	for _, c := range m.Constraints() {
		w := &workRow{name: c.Name, coef: make(map[int]float64), lo: c.Lo - c.Expr.Const, hi: c.Hi - c.Expr.Const, active: true}
		for _, t := range c.Expr.Terms {
			w.coef[t.Var.Index()] += t.Coef
		}
		rows = append(rows, w)
	}

	for changed := true; changed; {
		changed = false
		for _, w := range rows {
			if !w.active {
				continue
			}
			for j, a := range w.coef {
				switch {
				case a == 0:
					delete(w.coef, j)
				case isFixed(j):
					v := 0.5 * (lo[j] + hi[j])
					w.lo -= a * v
					w.hi -= a * v
					delete(w.coef, j)
				}
			}
			switch len(w.coef) {
			case 0:
				if w.lo > presolveTol || w.hi < -presolveTol {
					return nil, fmt.Errorf("%w: row %s", errInfeasible, w.name)
				}
				w.active = false
			case 1:
				for j, a := range w.coef {
					l, h := w.lo/a, w.hi/a
					if a < 0 {
						l, h = h, l
					}
					lo[j] = math.Max(lo[j], l)
					hi[j] = math.Min(hi[j], h)
					if lo[j] > hi[j]+presolveTol {
						return nil, fmt.Errorf("%w: row %s bounds [%g, %g]", errInfeasible, w.name, lo[j], hi[j])
					}
					if lo[j] > hi[j] {
						hi[j] = lo[j]
					}
				}
				w.active = false
				changed = true
			}
		}
	}

	r := &reduced{n: n, pos: make([]int, n), fixed: make([]float64, n)}
	for i := 0; i < n; i++ {
		if isFixed(i) {
			r.pos[i] = -1
			r.fixed[i] = 0.5 * (lo[i] + hi[i])
			continue
		}
		r.pos[i] = len(r.free)
		r.free = append(r.free, i)
		r.lo = append(r.lo, lo[i])
		r.hi = append(r.hi, hi[i])
	}

	for _, w := range rows {
		if !w.active {
			continue
		}
		idx := make([]int, 0, len(w.coef))
		coef := make([]float64, 0, len(w.coef))
		for j := range w.coef {
			idx = append(idx, r.pos[j])
		}
		slices.Sort(idx)
		for _, p := range idx {
			coef = append(coef, w.coef[r.free[p]])
		}
		switch {
		case w.lo == w.hi:
			r.eq = append(r.eq, sparseRow{name: w.name, idx: idx, coef: coef, rhs: w.lo})
		default:
			if !math.IsInf(w.hi, 1) {
				r.le = append(r.le, sparseRow{name: w.name, idx: idx, coef: coef, rhs: w.hi})
			}
			if !math.IsInf(w.lo, -1) {
				neg := make([]float64, len(coef))
				for k, a := range coef {
					neg[k] = -a
				}
				r.le = append(r.le, sparseRow{name: w.name, idx: idx, coef: neg, rhs: -w.lo})
			}
		}
	}
	return r, nil
}

func (r *reduced) dim() int { return len(r.free) }

// expand writes the full variable vector for reduced point y into x.
func (r *reduced) expand(x, y []float64) {
	for i := 0; i < r.n; i++ {
		if p := r.pos[i]; p >= 0 {
			x[i] = y[p]
		} else {
			x[i] = r.fixed[i]
		}
	}
}

// restrict drops fixed variables from a full vector.
func (r *reduced) restrict(x []float64) []float64 {
	y := make([]float64, len(r.free))
	for p, i := range r.free {
		y[p] = x[i]
	}
	return y
}

func (r *reduced) clip(y []float64) {
	for j := range y {
		y[j] = math.Min(math.Max(y[j], r.lo[j]), r.hi[j])
	}
}

// violation is the largest row or bound violation of reduced point y.
func (r *reduced) violation(y []float64) float64 {
	worst := 0.0
	for j, v := range y {
		worst = math.Max(worst, math.Max(r.lo[j]-v, v-r.hi[j]))
	}
	for _, row := range r.eq {
		worst = math.Max(worst, math.Abs(row.dot(y)-row.rhs))
	}
	for _, row := range r.le {
		worst = math.Max(worst, row.dot(y)-row.rhs)
	}
	return worst
}

// boxed returns a copy whose bounds are intersected with [lo, hi].
func (r *reduced) boxed(lo, hi []float64) *reduced {
	c := *r
	c.lo = make([]float64, len(r.lo))
	c.hi = make([]float64, len(r.hi))
	for j := range r.lo {
		c.lo[j] = math.Max(r.lo[j], lo[j])
		c.hi[j] = math.Min(r.hi[j], hi[j])
	}
	return &c
}

// objective evaluates a model objective at reduced points.
type objective struct {
	expr nlp.Expr
	r    *reduced
	x    []float64
	g    []float64
}

func newObjective(expr nlp.Expr, r *reduced) *objective {
	return &objective{expr: expr, r: r, x: make([]float64, r.n), g: make([]float64, r.n)}
}

func (o *objective) value(y []float64) float64 {
	o.r.expand(o.x, y)
	return o.expr.Eval(o.x)
}

func (o *objective) grad(dst, y []float64) {
	o.r.expand(o.x, y)
	for i := range o.g {
		o.g[i] = 0
	}
	o.expr.AddGrad(o.x, o.g, 1)
	for p, i := range o.r.free {
		dst[p] = o.g[i]
	}
}

func (o *objective) full(y []float64) []float64 {
	x := make([]float64, o.r.n)
	o.r.expand(x, y)
	return x
}
