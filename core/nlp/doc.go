// Package nlp is a small algebraic modelling layer for nonlinear programs with
// linear constraints. Variables are registered on a Model and referenced
// through Var handles; constraints are linear range rows and the objective is
// any differentiable Expr.
//
// Example usage:
//
//	m := nlp.NewModel()
//	x := m.AddVar("x", 0, 10)
//	y := m.AddVar("y", 0, 10)
//	_ = m.AddConstraint("sum", nlp.Lin(0).Plus(1, x).Plus(1, y), 4, 4)
//	m.Minimize(nlp.Lin(0).Plus(1, x).Plus(2, y))
package nlp
