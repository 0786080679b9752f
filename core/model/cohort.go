package model

import (
	"math"
	"slices"
)

// DefaultHorizon is the number of hourly steps in a planning day.
const DefaultHorizon = 24

// Cohort groups EVs that share capacity, rate limit and connection hours.
// Cohorts are built once from configuration and never mutated.
type Cohort struct {
	Name           string
	Capacity       float64 // maximum stored energy in kWh
	RateMax        float64 // kW, applied over one hour so equal to kWh per step
	AvailableHours []int   // sorted hour indexes when the cohort is connected
	Sellback       bool    // whether discharging to the grid is allowed
	Elasticity     float64 // price sensitivity to this cohort's demand
	InitialStorage float64 // kWh held before hour 0

	// TargetStorage is the energy the cohort must hold after its last
	// connected hour. Nil means fully charged.
	TargetStorage *float64
}

// Validate checks the cohort against a horizon of the given length.
func (c Cohort) Validate(horizon int) error {
	if c.Name == "" {
		return configErr("", "name", "must not be empty")
	}
	if !finite(c.Capacity) || c.Capacity <= 0 {
		return configErr(c.Name, "capacity", "must be > 0, got %g", c.Capacity)
	}
	if !finite(c.RateMax) || c.RateMax <= 0 {
		return configErr(c.Name, "rate_max", "must be > 0, got %g", c.RateMax)
	}
	if !finite(c.Elasticity) || c.Elasticity < 0 {
		return configErr(c.Name, "price_elasticity", "must be >= 0, got %g", c.Elasticity)
	}
	if !finite(c.InitialStorage) || c.InitialStorage < 0 || c.InitialStorage > c.Capacity {
		return configErr(c.Name, "initial_storage", "%g outside [0, %g]", c.InitialStorage, c.Capacity)
	}
	if len(c.AvailableHours) == 0 {
		return configErr(c.Name, "available_hours", "must not be empty")
	}
	for i, h := range c.AvailableHours {
		if h < 0 || h >= horizon {
			return configErr(c.Name, "available_hours", "hour %d outside [0, %d)", h, horizon)
		}
		if i > 0 && h <= c.AvailableHours[i-1] {
			return configErr(c.Name, "available_hours", "hours must be strictly increasing")
		}
	}
	target := c.Target()
	if !finite(target) || target < 0 || target > c.Capacity {
		return configErr(c.Name, "target_storage", "%g outside [0, %g]", target, c.Capacity)
	}
	return nil
}

// Target returns the terminal storage requirement.
func (c Cohort) Target() float64 {
	if c.TargetStorage != nil {
		return *c.TargetStorage
	}
	return c.Capacity
}

// Online reports whether the cohort is connected during hour h.
func (c Cohort) Online(h int) bool {
	_, ok := slices.BinarySearch(c.AvailableHours, h)
	return ok
}

// LastHour returns the last connected hour.
func (c Cohort) LastHour() int {
	return c.AvailableHours[len(c.AvailableHours)-1]
}

// RateBounds returns the permitted range of rate during hour h.
func (c Cohort) RateBounds(h int) (lo, hi float64) {
	if !c.Online(h) {
		return 0, 0
	}
	if c.Sellback {
		return -c.RateMax, c.RateMax
	}
	return 0, c.RateMax
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
