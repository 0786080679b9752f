package scheduling

import (
	"fmt"
	"math"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/nlp"
)

// CohortVars holds the decision variables of one cohort, indexed by hour.
type CohortVars struct {
	Cohort  model.Cohort
	Rate    []nlp.Var
	Storage []nlp.Var
}

// addStorageDynamics registers the variables of c and the rows tying them
// together:
//
//	storage[h] - storage[h-1] - rate[h] = 0   (storage[-1] = initial)
//	lo(h) <= rate[h] <= hi(h)                 (offline hours pin rate to 0)
//	storage[last connected hour] = target
//
// Storage carries [0, capacity] as variable bounds.
func addStorageDynamics(m *nlp.Model, c model.Cohort, horizon int) (CohortVars, error) {
	if err := c.Validate(horizon); err != nil {
		return CohortVars{}, err
	}
	cv := CohortVars{
		Cohort:  c,
		Rate:    make([]nlp.Var, horizon),
		Storage: make([]nlp.Var, horizon),
	}
	inf := math.Inf(1)
	for h := 0; h < horizon; h++ {
		cv.Rate[h] = m.AddVar(fmt.Sprintf("%s.rate[%d]", c.Name, h), -inf, inf)
		cv.Storage[h] = m.AddVar(fmt.Sprintf("%s.storage[%d]", c.Name, h), 0, c.Capacity)
	}

	for h := 0; h < horizon; h++ {
		balance := nlp.Lin(0).Plus(1, cv.Storage[h]).Plus(-1, cv.Rate[h])
		rhs := c.InitialStorage
		if h > 0 {
			balance = balance.Plus(-1, cv.Storage[h-1])
			rhs = 0
		}
		if err := m.AddConstraint(fmt.Sprintf("%s.balance[%d]", c.Name, h), balance, rhs, rhs); err != nil {
			return CohortVars{}, err
		}
		lo, hi := c.RateBounds(h)
		if err := m.AddConstraint(fmt.Sprintf("%s.rate_bound[%d]", c.Name, h), nlp.Lin(0).Plus(1, cv.Rate[h]), lo, hi); err != nil {
			return CohortVars{}, err
		}
	}

	target := c.Target()
	last := cv.Storage[c.LastHour()]
	if err := m.AddConstraint(c.Name+".target", nlp.Lin(0).Plus(1, last), target, target); err != nil {
		return CohortVars{}, err
	}
	return cv, nil
}

// Values reads the cohort's rate and storage series from a solution vector.
func (cv CohortVars) Values(x []float64) (rate, storage []float64) {
	rate = make([]float64, len(cv.Rate))
	storage = make([]float64, len(cv.Storage))
	for h := range cv.Rate {
		rate[h] = x[cv.Rate[h].Index()]
		storage[h] = x[cv.Storage[h].Index()]
	}
	return rate, storage
}
