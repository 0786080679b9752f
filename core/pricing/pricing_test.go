package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantSeries(t *testing.T) {
	s, err := Constant{Price: 5}.Series(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, s)

	_, err = Constant{Price: 5}.Series(0)
	assert.Error(t, err)
}

func TestPeakRisesTowardMu(t *testing.T) {
	s, err := DefaultPeak().Series(24)
	require.NoError(t, err)
	for h := 1; h <= 17; h++ {
		assert.Greater(t, s[h], s[h-1], "hour %d", h)
	}
	assert.InDelta(t, 10, s[17], 1e-12)
	assert.Less(t, s[23], s[17])

	_, err = Peak{Sigma: 0}.Series(4)
	assert.Error(t, err)
}

func TestSeriesProfile(t *testing.T) {
	s, err := Series{Values: []float64{1, 2, 3, 4}}.Series(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, s)

	_, err = Series{Values: []float64{1}}.Series(3)
	assert.True(t, errors.Is(err, ErrShortSeries))
}

func TestQuadraticCoupling(t *testing.T) {
	q := Quadratic{}
	e := []float64{0.5, 0}
	assert.InDelta(t, 0.5*4, q.Surcharge(e, []float64{2, 9}), 1e-12)
	assert.InDelta(t, 2, q.Marginal(0.5, 2), 1e-12)
	assert.InDelta(t, 0, q.Floor(e, []float64{-1, 0}, []float64{1, 1}), 1e-12)
	assert.InDelta(t, 0.5, q.Floor(e, []float64{1, 0}, []float64{3, 1}), 1e-12)
}

func TestLinearCoupling(t *testing.T) {
	l := Linear{}
	e := []float64{0.5, 1}
	assert.InDelta(t, 0.5*2-3, l.Surcharge(e, []float64{2, -3}), 1e-12)
	assert.InDelta(t, 0.5, l.Marginal(0.5, 100), 1e-12)
	assert.InDelta(t, -0.5-2, l.Floor(e, []float64{-1, -2}, []float64{1, 2}), 1e-12)
}

func TestParseCoupling(t *testing.T) {
	c, err := ParseCoupling("")
	require.NoError(t, err)
	assert.Equal(t, "quadratic", c.Name())
	c, err = ParseCoupling(" Linear ")
	require.NoError(t, err)
	assert.Equal(t, "linear", c.Name())
	_, err = ParseCoupling("cubic")
	assert.Error(t, err)
}
