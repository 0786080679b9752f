package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharyweiss/demandscheduling/config"
	"github.com/zacharyweiss/demandscheduling/core/factory"
	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/nlp"
	"github.com/zacharyweiss/demandscheduling/core/runlog"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
	"github.com/zacharyweiss/demandscheduling/core/solver"
	"github.com/zacharyweiss/demandscheduling/infra/logger"
	"github.com/zacharyweiss/demandscheduling/infra/mqtt"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Horizon = 6
	cfg.Cohorts = []config.CohortConfig{
		{Name: "fleet", Capacity: 12, RateMax: 5, Window: &config.WindowConfig{Start: 0, End: 6}},
	}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	return cfg
}

func TestServicePlanAndPublish(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	svc, err := New(testConfig(), WithPublisher(pub), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	in, err := svc.Input()
	require.NoError(t, err)
	s, err := svc.Plan(context.Background(), in, true, 0)
	require.NoError(t, err)
	assert.InDelta(t, 60, s.Cost, 1e-6)
	require.Contains(t, pub.Messages, "fleet")
	assert.Equal(t, s.Cohorts[0].Rate, pub.Messages["fleet"])

	// the mock acknowledges every message it published
	_, err = svc.Plan(context.Background(), in, true, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background()))
	stats := svc.Stats()
	assert.Equal(t, 2, stats.Solved)
	assert.Equal(t, 0, stats.Failed)
	require.Len(t, pub.Runs, 2)
	assert.Equal(t, "solved", pub.Runs[1].State)
}

func TestServicePublishFailure(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	pub.FailCohort["fleet"] = true
	svc, err := New(testConfig(), WithPublisher(pub), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer svc.Close(context.Background())

	in, err := svc.Input()
	require.NoError(t, err)
	s, err := svc.Plan(context.Background(), in, true, 0)
	assert.Error(t, err)
	assert.NotNil(t, s, "the schedule is returned even when publishing fails")
}

func TestServicePublishWithoutMQTT(t *testing.T) {
	svc, err := New(testConfig(), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer svc.Close(context.Background())

	in, err := svc.Input()
	require.NoError(t, err)
	_, err = svc.Plan(context.Background(), in, true, 0)
	assert.Error(t, err)
}

type failingSolver struct{}

func (failingSolver) Solve(context.Context, *nlp.Model, [][]float64) (*solver.Result, error) {
	return &solver.Result{Status: solver.StatusInfeasible, Message: "no"}, nil
}

func TestServiceSweepCountsFailures(t *testing.T) {
	svc, err := New(testConfig(), WithSolver(failingSolver{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	in, err := svc.Input()
	require.NoError(t, err)
	points, err := svc.Sweep(context.Background(), in, []float64{0, 0.5})
	require.NoError(t, err)
	for _, p := range points {
		assert.ErrorIs(t, p.Err, scheduling.ErrSolveFailed)
	}
	require.NoError(t, svc.Close(context.Background()))
	assert.Equal(t, 2, svc.Stats().Failed)
}

func TestServiceReportsRunsToPublisher(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	svc, err := New(testConfig(), WithPublisher(pub), WithSolver(failingSolver{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	in, err := svc.Input()
	require.NoError(t, err)
	_, err = svc.Plan(context.Background(), in, true, 0)
	require.ErrorIs(t, err, scheduling.ErrSolveFailed)
	require.NoError(t, svc.Close(context.Background()))

	require.Len(t, pub.Runs, 1)
	assert.Equal(t, "failed", pub.Runs[0].State)
	assert.NotEmpty(t, pub.Runs[0].Err)
	assert.Empty(t, pub.Messages, "a failed run publishes no schedule")
}

func TestServiceUnknownSink(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServiceInputError(t *testing.T) {
	cfg := testConfig()
	cfg.Cohorts[0].InitialStorage = 99
	svc, err := New(cfg, WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer svc.Close(context.Background())
	_, err = svc.Input()
	assert.True(t, errors.Is(err, model.ErrConfig))
}

func TestServiceRunLog(t *testing.T) {
	cfg := testConfig()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	cfg.RunLog = runlog.Config{Type: "jsonl", Path: path}
	svc, err := New(cfg, WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	require.NotNil(t, svc.Runs())
	assert.Nil(t, svc.Latest())

	in, err := svc.Input()
	require.NoError(t, err)
	s, err := svc.Plan(context.Background(), in, false, 0)
	require.NoError(t, err)
	assert.Same(t, s, svc.Latest())
	require.NoError(t, svc.Close(context.Background()))

	store, err := runlog.NewJSONLStore(path)
	require.NoError(t, err)
	recs, err := store.Query(context.Background(), runlog.Query{Cohort: "fleet"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, s.RunID, recs[0].RunID)
	assert.Equal(t, "solved", recs[0].State)
	assert.InDelta(t, 60, recs[0].Schedule.Cost, 1e-6)
}
