package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharyweiss/demandscheduling/core/nlp"
)

func TestPresolveFoldsSingletonsAndFixedVars(t *testing.T) {
	m := nlp.NewModel()
	inf := math.Inf(1)
	r := m.AddVar("r", -inf, inf)
	s := m.AddVar("s", 0, 10)
	u := m.AddVar("u", 0, 10)
	// r in [0, 3], s fixed by a singleton equality, then u - s <= 2
	require.NoError(t, m.AddConstraint("r_bound", nlp.Lin(0).Plus(1, r), 0, 3))
	require.NoError(t, m.AddConstraint("s_pin", nlp.Lin(1).Plus(2, s), 9, 9))
	require.NoError(t, m.AddConstraint("link", nlp.Lin(0).Plus(1, u).Plus(-1, s).Plus(1, r), math.Inf(-1), 6))

	p, err := presolve(m)
	require.NoError(t, err)
	assert.Equal(t, 2, p.dim())
	assert.Equal(t, []int{0, 2}, p.free)
	assert.Equal(t, -1, p.pos[s.Index()])
	assert.InDelta(t, 4, p.fixed[s.Index()], 1e-12)
	assert.Equal(t, []float64{0, 0}, p.lo)
	assert.Equal(t, []float64{3, 10}, p.hi)
	require.Len(t, p.le, 1)
	assert.InDelta(t, 10, p.le[0].rhs, 1e-12)
	assert.Empty(t, p.eq)

	full := make([]float64, 3)
	p.expand(full, []float64{1, 2})
	assert.Equal(t, []float64{1, 4, 2}, full)
	assert.Equal(t, []float64{1, 2}, p.restrict(full))
	assert.InDelta(t, 0, p.violation([]float64{1, 2}), 1e-12)
	assert.InDelta(t, 1, p.violation([]float64{3, 8}), 1e-12)
}

func TestPresolveCascade(t *testing.T) {
	m := nlp.NewModel()
	a := m.AddVar("a", 0, 10)
	b := m.AddVar("b", 0, 10)
	c := m.AddVar("c", 0, 10)
	require.NoError(t, m.AddConstraint("a_pin", nlp.Lin(0).Plus(1, a), 5, 5))
	require.NoError(t, m.AddConstraint("ab", nlp.Lin(0).Plus(1, b).Plus(-1, a), 0, 0))
	require.NoError(t, m.AddConstraint("bc", nlp.Lin(0).Plus(1, c).Plus(-1, b), 0, 0))

	p, err := presolve(m)
	require.NoError(t, err)
	assert.Equal(t, 0, p.dim())
	assert.Equal(t, []float64{5, 5, 5}, p.fixed)
}

func TestPresolveDetectsInfeasibleRows(t *testing.T) {
	m := nlp.NewModel()
	a := m.AddVar("a", 0, 0)
	b := m.AddVar("b", 1, 1)
	require.NoError(t, m.AddConstraint("sum", nlp.Lin(0).Plus(1, a).Plus(1, b), 3, 3))
	_, err := presolve(m)
	assert.True(t, errors.Is(err, errInfeasible))
}

func TestSolveLPBoxed(t *testing.T) {
	m, _, _ := linearModel(t)
	p, err := presolve(m)
	require.NoError(t, err)
	y, status, err := solveLP(p.boxed([]float64{1, 0}, []float64{10, 10}), []float64{1, 2}, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 4, y[0], 1e-9)

	y, status, err = solveLP(p.boxed([]float64{0, 3.5}, []float64{10, 10}), []float64{1, 2}, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	assert.InDelta(t, 0.5, y[0], 1e-9)
	assert.InDelta(t, 3.5, y[1], 1e-9)

	_, status, err = solveLP(p.boxed([]float64{0, 0}, []float64{1, 1}), []float64{1, 2}, 1e-9)
	assert.Error(t, err)
	assert.Equal(t, StatusInfeasible, status)
}
