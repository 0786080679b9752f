package scheduling

import "github.com/zacharyweiss/demandscheduling/core/nlp"

// CostExpr is the total cost Σ_h Σ_c rate_c[h]·price(h). It holds the same
// PriceExpr instances registered for each hour.
type CostExpr struct {
	prices []*PriceExpr
}

func newCostExpr(prices []*PriceExpr) *CostExpr {
	return &CostExpr{prices: prices}
}

// Eval returns the total cost at x.
func (c *CostExpr) Eval(x []float64) float64 {
	total := 0.0
	for _, p := range c.prices {
		total += p.Demand(x) * p.Eval(x)
	}
	return total
}

// AddGrad uses ∂(D·price)/∂r = price + D·∂price/∂r.
func (c *CostExpr) AddGrad(x, grad []float64, scale float64) {
	for _, p := range c.prices {
		price := p.Eval(x)
		for _, v := range p.rates {
			grad[v.Index()] += scale * price
		}
		p.AddGrad(x, grad, scale*p.Demand(x))
	}
}

// HourCost returns the cost paid during hour h.
func (c *CostExpr) HourCost(x []float64, h int) float64 {
	p := c.prices[h]
	return p.Demand(x) * p.Eval(x)
}

// Linear returns Σ base(h)·rate when every hourly price is constant.
func (c *CostExpr) Linear() (nlp.LinExpr, bool) {
	var e nlp.LinExpr
	for _, p := range c.prices {
		if !p.Constant() {
			return nlp.LinExpr{}, false
		}
		for _, v := range p.rates {
			e.Terms = append(e.Terms, nlp.Term{Var: v, Coef: p.Base})
		}
	}
	return e, true
}
