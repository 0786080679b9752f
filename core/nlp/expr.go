package nlp

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// LinExpr is Σ Coef·x + Const.
type LinExpr struct {
	Terms []Term
	Const float64
}

// Lin starts a linear expression with a constant.
func Lin(c float64) LinExpr { return LinExpr{Const: c} }

// Plus returns e + coef·v.
func (e LinExpr) Plus(coef float64, v Var) LinExpr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	e.Terms = append(terms, Term{Var: v, Coef: coef})
	return e
}

// Eval evaluates the expression at x.
func (e LinExpr) Eval(x []float64) float64 {
	s := e.Const
	for _, t := range e.Terms {
		s += t.Coef * x[t.Var.idx]
	}
	return s
}

// AddGrad adds scale times the coefficient vector to grad.
func (e LinExpr) AddGrad(_ []float64, grad []float64, scale float64) {
	for _, t := range e.Terms {
		grad[t.Var.idx] += scale * t.Coef
	}
}

// Linear returns e itself.
func (e LinExpr) Linear() (LinExpr, bool) { return e, true }

// Coefficients returns the dense coefficient vector of length n, summing
// repeated variables.
func (e LinExpr) Coefficients(n int) []float64 {
	c := make([]float64, n)
	for _, t := range e.Terms {
		c[t.Var.idx] += t.Coef
	}
	return c
}

// Gradient evaluates ∇obj(x) into a new slice.
func Gradient(obj Expr, x []float64) []float64 {
	g := make([]float64, len(x))
	obj.AddGrad(x, g, 1)
	return g
}
