package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
)

func sample() *model.Schedule {
	return &model.Schedule{
		RunID:   "run-1",
		Horizon: 2,
		Prices:  []float64{5, 6.25},
		Cost:    38.75,
		Status:  "optimal",
		Method:  "simplex",
		Starts:  1,
		Cohorts: []model.CohortSchedule{
			{Cohort: model.Cohort{Name: "fleet", Capacity: 4}, Name: "fleet", Rate: []float64{3, 1}, Storage: []float64{3, 4}},
			{Name: "depot", Rate: []float64{0, 2}, Storage: []float64{0, 2}},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, 38.75, got["cost"])
	cohorts := got["cohorts"].([]any)
	require.Len(t, cohorts, 2)
	first := cohorts[0].(map[string]any)
	assert.Equal(t, "fleet", first["name"])
	// the cohort definition is not serialised
	assert.NotContains(t, first, "Cohort")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"run_id", "hour", "cohort", "rate", "storage", "price"},
		{"run-1", "0", "fleet", "3", "3", "5"},
		{"run-1", "0", "depot", "0", "0", "5"},
		{"run-1", "1", "fleet", "1", "4", "6.25"},
		{"run-1", "1", "depot", "2", "2", "6.25"},
	}, rows)
}

func TestWriteSweepCSV(t *testing.T) {
	points := []scheduling.SweepPoint{
		{Elasticity: 0, RunID: "a", Schedule: sample()},
		{Elasticity: 0.5, RunID: "b", Err: errors.New("solve failed: status infeasible")},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSweepCSV(&buf, points))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"0", "a", "optimal", "38.75", "3", ""}, rows[1])
	assert.Equal(t, []string{"0.5", "b", "failed", "", "", "solve failed: status infeasible"}, rows[2])
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sample()))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "Schedule run-1")
	for _, name := range []string{"price", "fleet", "depot"} {
		assert.Contains(t, out, `"`+name+`"`)
	}
	assert.Contains(t, out, "6.25")
}
