package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
)

func sample() *model.Schedule {
	return &model.Schedule{
		RunID:   "run-1",
		Horizon: 3,
		Prices:  []float64{1, 10, 1},
		Cost:    -45,
		Status:  "optimal",
		Method:  "simplex",
		Starts:  1,
		Cohorts: []model.CohortSchedule{{
			Cohort:  model.Cohort{Name: "v2g", Capacity: 10, RateMax: 5, AvailableHours: []int{1, 2}, Sellback: true},
			Name:    "v2g",
			Rate:    []float64{0, -5, 5},
			Storage: []float64{10, 5, 10},
		}},
	}
}

func TestSchedulePlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Schedule(&buf, sample(), Options{Storage: true, Eps: 1e-6}))
	out := buf.String()
	assert.NotContains(t, out, "\x1b[")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"HOUR", "PRICE", "DEMAND", "v2g", "v2g.soc"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "1.000", "0.000", "-", "10.000"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "10.000", "-5.000", "-5.000", "5.000"}, strings.Fields(lines[2]))
	assert.Contains(t, lines[4], "cost -45.0000")
	assert.Contains(t, lines[4], "run run-1")
}

func TestScheduleColour(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Schedule(&buf, sample(), DefaultOptions()))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestSweep(t *testing.T) {
	cheap := sample()
	dear := sample()
	dear.Cost = 12
	points := []scheduling.SweepPoint{
		{Elasticity: 0, RunID: "a", Schedule: dear},
		{Elasticity: 0.5, RunID: "b", Schedule: cheap},
		{Elasticity: 1, RunID: "c", Err: errors.New("boom")},
	}
	var buf bytes.Buffer
	require.NoError(t, Sweep(&buf, points, Options{}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"0.5", "optimal", "-45.0000", "5.000", "b"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"1", "failed", "-", "-", "c"}, strings.Fields(lines[3]))
}
