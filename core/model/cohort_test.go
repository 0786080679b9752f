package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCohort() Cohort {
	return Cohort{
		Name:           "fleet",
		Capacity:       40,
		RateMax:        7,
		AvailableHours: []int{0, 1, 2, 3, 4, 5, 6, 7},
	}
}

func TestCohortValidate(t *testing.T) {
	neg := -1.0
	cases := []struct {
		name   string
		mutate func(*Cohort)
		field  string
	}{
		{"ok", func(*Cohort) {}, ""},
		{"empty name", func(c *Cohort) { c.Name = "" }, "name"},
		{"zero capacity", func(c *Cohort) { c.Capacity = 0 }, "capacity"},
		{"nan rate", func(c *Cohort) { c.RateMax = math.NaN() }, "rate_max"},
		{"negative elasticity", func(c *Cohort) { c.Elasticity = -0.1 }, "price_elasticity"},
		{"initial above capacity", func(c *Cohort) { c.InitialStorage = 41 }, "initial_storage"},
		{"no hours", func(c *Cohort) { c.AvailableHours = nil }, "available_hours"},
		{"hour beyond horizon", func(c *Cohort) { c.AvailableHours = []int{3, 24} }, "available_hours"},
		{"unsorted hours", func(c *Cohort) { c.AvailableHours = []int{3, 2} }, "available_hours"},
		{"negative target", func(c *Cohort) { c.TargetStorage = &neg }, "target_storage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := baseCohort()
			tc.mutate(&c)
			err := c.Validate(DefaultHorizon)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestCohortRateBounds(t *testing.T) {
	c := baseCohort()
	lo, hi := c.RateBounds(3)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 7.0, hi)

	lo, hi = c.RateBounds(12)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)

	c.Sellback = true
	lo, _ = c.RateBounds(3)
	assert.Equal(t, -7.0, lo)

	assert.Equal(t, 7, c.LastHour())
	assert.Equal(t, 40.0, c.Target())
}

func TestScheduleValidate(t *testing.T) {
	c := Cohort{Name: "a", Capacity: 10, RateMax: 5, AvailableHours: []int{0, 1}}
	good := &Schedule{
		Horizon: 3,
		Cohorts: []CohortSchedule{{Cohort: c, Name: "a", Rate: []float64{5, 5, 0}, Storage: []float64{5, 10, 10}}},
	}
	assert.NoError(t, good.Validate(1e-6))
	assert.Equal(t, []float64{5, 5, 0}, good.Demand())
	assert.InDelta(t, 10, good.Cohorts[0].Energy(), 1e-12)

	cases := []struct {
		name      string
		rate      []float64
		storage   []float64
		invariant string
	}{
		{"balance", []float64{5, 5, 0}, []float64{5, 9, 9}, "balance"},
		{"offline", []float64{5, 4, 1}, []float64{5, 9, 10}, "offline rate == 0"},
		{"valid", []float64{5, 5, 0}, []float64{5, 10, 10}, ""},
		{"rate cap", []float64{6, 4, 0}, []float64{6, 10, 10}, "rate <= rate_max"},
		{"target", []float64{5, 4, 0}, []float64{5, 9, 9}, "terminal target"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Schedule{Horizon: 3, Cohorts: []CohortSchedule{{Cohort: c, Rate: tc.rate, Storage: tc.storage}}}
			err := s.Validate(1e-6)
			if tc.invariant == "" {
				assert.NoError(t, err)
				return
			}
			var ie *InvariantError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tc.invariant, ie.Invariant)
			assert.True(t, errors.Is(err, ErrInvariant))
		})
	}
}

func TestScheduleValidateNoSellback(t *testing.T) {
	c := Cohort{Name: "a", Capacity: 10, RateMax: 5, AvailableHours: []int{0, 1}, InitialStorage: 5, TargetStorage: new(float64)}
	s := &Schedule{Horizon: 2, Cohorts: []CohortSchedule{{Cohort: c, Rate: []float64{-5, 0}, Storage: []float64{0, 0}}}}
	var ie *InvariantError
	require.True(t, errors.As(s.Validate(1e-6), &ie))
	assert.Equal(t, "rate >= lower bound", ie.Invariant)
}
