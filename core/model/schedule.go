package model

import "math"

// CohortSchedule holds the solved per hour values of one cohort.
type CohortSchedule struct {
	Cohort  Cohort    `json:"-"`
	Name    string    `json:"name"`
	Rate    []float64 `json:"rate"`    // net kWh exchanged during each hour
	Storage []float64 `json:"storage"` // kWh held at the end of each hour
}

// Energy returns the net energy bought (positive) or sold (negative).
func (s CohortSchedule) Energy() float64 {
	e := 0.0
	for _, r := range s.Rate {
		e += r
	}
	return e
}

// Schedule is the result of one solved run.
type Schedule struct {
	RunID   string           `json:"run_id"`
	Horizon int              `json:"horizon"`
	Prices  []float64        `json:"prices"`
	Cohorts []CohortSchedule `json:"cohorts"`
	Cost    float64          `json:"cost"`
	Status  string           `json:"status"`
	Method  string           `json:"method"`
	Starts  int              `json:"starts"`
}

// Demand returns the aggregate rate per hour.
func (s *Schedule) Demand() []float64 {
	d := make([]float64, s.Horizon)
	for _, c := range s.Cohorts {
		for h, r := range c.Rate {
			d[h] += r
		}
	}
	return d
}

// Validate checks the storage invariants with an absolute tolerance and
// returns the first violation as an *InvariantError.
func (s *Schedule) Validate(tol float64) error {
	for _, cs := range s.Cohorts {
		c := cs.Cohort
		prev := c.InitialStorage
		for h := 0; h < s.Horizon; h++ {
			r, st := cs.Rate[h], cs.Storage[h]
			if d := math.Abs(st - prev - r); d > tol {
				return &InvariantError{Cohort: c.Name, Hour: h, Invariant: "balance", Value: st - prev, Limit: r}
			}
			if st < -tol {
				return &InvariantError{Cohort: c.Name, Hour: h, Invariant: "storage >= 0", Value: st, Limit: 0}
			}
			if st > c.Capacity+tol {
				return &InvariantError{Cohort: c.Name, Hour: h, Invariant: "storage <= capacity", Value: st, Limit: c.Capacity}
			}
			lo, hi := c.RateBounds(h)
			switch {
			case !c.Online(h) && math.Abs(r) > tol:
				return &InvariantError{Cohort: c.Name, Hour: h, Invariant: "offline rate == 0", Value: r, Limit: 0}
			case r < lo-tol:
				return &InvariantError{Cohort: c.Name, Hour: h, Invariant: "rate >= lower bound", Value: r, Limit: lo}
			case r > hi+tol:
				return &InvariantError{Cohort: c.Name, Hour: h, Invariant: "rate <= rate_max", Value: r, Limit: hi}
			}
			prev = st
		}
		last := c.LastHour()
		if d := math.Abs(cs.Storage[last] - c.Target()); d > tol {
			return &InvariantError{Cohort: c.Name, Hour: last, Invariant: "terminal target", Value: cs.Storage[last], Limit: c.Target()}
		}
	}
	return nil
}
