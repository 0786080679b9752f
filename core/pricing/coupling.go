package pricing

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Coupling is the demand dependent part of an hourly price. Implementations
// receive one elasticity and one rate per cohort for a single hour.
type Coupling interface {
	Name() string
	// Surcharge returns the amount added to the base price.
	Surcharge(elasticity, rates []float64) float64
	// Marginal returns ∂Surcharge/∂rate for one cohort.
	Marginal(elasticity, rate float64) float64
	// Floor returns the smallest Surcharge reachable with each rate in
	// [lo[i], hi[i]].
	Floor(elasticity, lo, hi []float64) float64
}

// Quadratic prices demand as Σ e·r². It never lowers the price.
type Quadratic struct{}

func (Quadratic) Name() string { return "quadratic" }

func (Quadratic) Surcharge(elasticity, rates []float64) float64 {
	s := 0.0
	for i, e := range elasticity {
		s += e * rates[i] * rates[i]
	}
	return s
}

func (Quadratic) Marginal(elasticity, rate float64) float64 {
	return 2 * elasticity * rate
}

func (Quadratic) Floor(elasticity, lo, hi []float64) float64 {
	s := 0.0
	for i, e := range elasticity {
		if lo[i] <= 0 && hi[i] >= 0 {
			continue
		}
		s += e * math.Min(lo[i]*lo[i], hi[i]*hi[i])
	}
	return s
}

// Linear prices demand as Σ e·r, so selling lowers the price.
type Linear struct{}

func (Linear) Name() string { return "linear" }

func (Linear) Surcharge(elasticity, rates []float64) float64 {
	return floats.Dot(elasticity, rates)
}

func (Linear) Marginal(elasticity, _ float64) float64 {
	return elasticity
}

// Floor assumes non-negative elasticities.
func (Linear) Floor(elasticity, lo, _ []float64) float64 {
	return floats.Dot(elasticity, lo)
}

// ParseCoupling maps a configuration name to a Coupling. An empty name
// selects Quadratic.
func ParseCoupling(name string) (Coupling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "quadratic":
		return Quadratic{}, nil
	case "linear":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("pricing: unknown coupling %q", name)
	}
}
