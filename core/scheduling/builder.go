package scheduling

import (
	"fmt"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/nlp"
	"github.com/zacharyweiss/demandscheduling/core/pricing"
)

// DefaultBasePrice is used when no price profile is configured.
const DefaultBasePrice = 5.0

// Input is everything needed to build one scheduling problem. Cohort order
// is kept in the resulting schedule.
type Input struct {
	Cohorts  []model.Cohort
	Horizon  int
	Profile  pricing.Profile  // nil means a constant DefaultBasePrice
	Coupling pricing.Coupling // nil means pricing.Quadratic
}

// Problem is a built model together with the handles needed to read a
// solution back.
type Problem struct {
	Model   *nlp.Model
	Horizon int
	Cohorts []CohortVars
	Prices  []*PriceExpr
	Cost    *CostExpr
}

// Build composes the storage dynamics of every cohort, one shared price
// expression per hour and the cost objective. Malformed input is reported
// as *model.ConfigError before anything is solved.
func Build(in Input) (*Problem, error) {
	if in.Horizon <= 0 {
		return nil, &model.ConfigError{Field: "horizon", Reason: fmt.Sprintf("must be > 0, got %d", in.Horizon)}
	}
	if len(in.Cohorts) == 0 {
		return nil, &model.ConfigError{Field: "cohorts", Reason: "at least one cohort is required"}
	}
	profile := in.Profile
	if profile == nil {
		profile = pricing.Constant{Price: DefaultBasePrice}
	}
	coupling := in.Coupling
	if coupling == nil {
		coupling = pricing.Quadratic{}
	}
	base, err := profile.Series(in.Horizon)
	if err != nil {
		return nil, &model.ConfigError{Field: "pricing", Reason: err.Error()}
	}

	m := nlp.NewModel()
	p := &Problem{Model: m, Horizon: in.Horizon}
	seen := make(map[string]bool, len(in.Cohorts))
	for _, c := range in.Cohorts {
		if seen[c.Name] {
			return nil, &model.ConfigError{Cohort: c.Name, Field: "name", Reason: "duplicate cohort name"}
		}
		seen[c.Name] = true
		cv, err := addStorageDynamics(m, c, in.Horizon)
		if err != nil {
			return nil, err
		}
		p.Cohorts = append(p.Cohorts, cv)
	}

	lo := make([]float64, len(p.Cohorts))
	hi := make([]float64, len(p.Cohorts))
	for h := 0; h < in.Horizon; h++ {
		price := newPriceExpr(h, base[h], coupling, p.Cohorts)
		for i, cv := range p.Cohorts {
			lo[i], hi[i] = cv.Cohort.RateBounds(h)
		}
		if floor := price.Floor(lo, hi); floor < 0 {
			return nil, &model.ConfigError{
				Field:  "pricing",
				Reason: fmt.Sprintf("price at hour %d can fall to %g; prices must stay non-negative", h, floor),
			}
		}
		p.Prices = append(p.Prices, price)
	}
	p.Cost = newCostExpr(p.Prices)
	m.Minimize(p.Cost)
	return p, nil
}

// InitialGuesses returns balance-consistent starting points: every cohort
// charging as early as possible, every cohort spreading its need evenly
// over its online hours, and, when rigid and elastic cohorts are mixed, a
// staggered plan that moves the elastic ones off the hours the rigid ones
// charge in. Cohorts that start from the same point tend to stay together
// under local descent; the staggered start is the one that separates them.
func (p *Problem) InitialGuesses() [][]float64 {
	greedy := make([]float64, p.Model.NumVars())
	spread := make([]float64, p.Model.NumVars())
	for _, cv := range p.Cohorts {
		c := cv.Cohort
		need := c.Target() - c.InitialStorage
		remaining := need
		even := need / float64(len(c.AvailableHours))
		sg, ss := c.InitialStorage, c.InitialStorage
		for h := 0; h < p.Horizon; h++ {
			lo, hi := c.RateBounds(h)
			g, s := 0.0, 0.0
			if c.Online(h) {
				g = clamp(remaining, lo, hi)
				s = clamp(even, lo, hi)
				remaining -= g
			}
			sg = clamp(sg+g, 0, c.Capacity)
			ss = clamp(ss+s, 0, c.Capacity)
			greedy[cv.Rate[h].Index()], greedy[cv.Storage[h].Index()] = g, sg
			spread[cv.Rate[h].Index()], spread[cv.Storage[h].Index()] = s, ss
		}
	}
	guesses := [][]float64{greedy, spread}
	if x, ok := p.staggered(greedy, spread); ok {
		guesses = append(guesses, x)
	}
	return guesses
}

// staggered keeps the greedy plan of inelastic cohorts and spreads each
// elastic cohort over the online hours no inelastic cohort charges in. An
// elastic cohort that cannot meet its need inside those hours keeps its
// spread plan. ok is false unless both kinds of cohort are present.
func (p *Problem) staggered(greedy, spread []float64) ([]float64, bool) {
	busy := make([]bool, p.Horizon)
	var rigid, elastic bool
	for _, cv := range p.Cohorts {
		if cv.Cohort.Elasticity > 0 {
			elastic = true
			continue
		}
		rigid = true
		for h := range busy {
			if greedy[cv.Rate[h].Index()] != 0 {
				busy[h] = true
			}
		}
	}
	if !rigid || !elastic {
		return nil, false
	}

	x := make([]float64, len(greedy))
	for _, cv := range p.Cohorts {
		c := cv.Cohort
		src := spread
		if c.Elasticity == 0 {
			src = greedy
		}
		for h := 0; h < p.Horizon; h++ {
			x[cv.Rate[h].Index()], x[cv.Storage[h].Index()] = src[cv.Rate[h].Index()], src[cv.Storage[h].Index()]
		}
		if c.Elasticity == 0 {
			continue
		}
		var free []int
		for _, h := range c.AvailableHours {
			if h < p.Horizon && !busy[h] {
				free = append(free, h)
			}
		}
		if len(free) == 0 {
			continue
		}
		even := (c.Target() - c.InitialStorage) / float64(len(free))
		fits := true
		for _, h := range free {
			if lo, hi := c.RateBounds(h); even < lo || even > hi {
				fits = false
				break
			}
		}
		if !fits {
			continue
		}
		st := c.InitialStorage
		for h := 0; h < p.Horizon; h++ {
			r := 0.0
			if c.Online(h) && !busy[h] {
				r = even
			}
			st = clamp(st+r, 0, c.Capacity)
			x[cv.Rate[h].Index()], x[cv.Storage[h].Index()] = r, st
		}
	}
	return x, true
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
