package scheduling

import (
	"github.com/zacharyweiss/demandscheduling/core/nlp"
	"github.com/zacharyweiss/demandscheduling/core/pricing"
)

// PriceExpr is the unit price of one hour: base plus the coupling surcharge
// over every cohort's rate in that hour. A single instance per hour is shared
// by every cost term that hour.
type PriceExpr struct {
	Hour       int
	Base       float64
	coupling   pricing.Coupling
	rates      []nlp.Var
	elasticity []float64
	buf        []float64
}

func newPriceExpr(hour int, base float64, coupling pricing.Coupling, cohorts []CohortVars) *PriceExpr {
	p := &PriceExpr{
		Hour:       hour,
		Base:       base,
		coupling:   coupling,
		rates:      make([]nlp.Var, len(cohorts)),
		elasticity: make([]float64, len(cohorts)),
		buf:        make([]float64, len(cohorts)),
	}
	for i, cv := range cohorts {
		p.rates[i] = cv.Rate[hour]
		p.elasticity[i] = cv.Cohort.Elasticity
	}
	return p
}

// Eval returns the price at x.
func (p *PriceExpr) Eval(x []float64) float64 {
	for i, v := range p.rates {
		p.buf[i] = x[v.Index()]
	}
	return p.Base + p.coupling.Surcharge(p.elasticity, p.buf)
}

// AddGrad accumulates scale·∂price/∂rate for each cohort.
func (p *PriceExpr) AddGrad(x, grad []float64, scale float64) {
	for i, v := range p.rates {
		grad[v.Index()] += scale * p.coupling.Marginal(p.elasticity[i], x[v.Index()])
	}
}

// Demand returns the aggregate rate of the hour.
func (p *PriceExpr) Demand(x []float64) float64 {
	d := 0.0
	for _, v := range p.rates {
		d += x[v.Index()]
	}
	return d
}

// Constant reports whether the price ignores demand, which happens when
// every elasticity is zero.
func (p *PriceExpr) Constant() bool {
	for _, e := range p.elasticity {
		if e != 0 {
			return false
		}
	}
	return true
}

// Floor returns the lowest price reachable within the given per cohort
// rate bounds.
func (p *PriceExpr) Floor(lo, hi []float64) float64 {
	return p.Base + p.coupling.Floor(p.elasticity, lo, hi)
}

// Rates returns the variables the price depends on, one per cohort.
func (p *PriceExpr) Rates() []nlp.Var { return p.rates }
