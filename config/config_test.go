package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/pricing"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `horizon: 24
cohorts:
  - name: commuters
    capacity: 40
    rate_max: 7
    window: {start: 18, end: 8}
    price_elasticity: 0.5
  - name: depot
    capacity: 10
    rate_max: 2
    available_hours: [5, 6, 7, 8, 9]
    sellback: true
    initial_storage: 2
    target_storage: 8
pricing:
  profile: peak
  coupling: linear
solver:
  method: auglag
  starts: 6
  timeout: 30s
metrics:
  sinks:
    - type: "nop"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  topic_prefix: "site"
  retain: true
runlog:
  type: sqlite
  path: runs.db
server:
  interval: 15m
export:
  csv: out.csv
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"horizon", cfg.Horizon, 24},
		{"cohorts", len(cfg.Cohorts), 2},
		{"window", *cfg.Cohorts[0].Window, WindowConfig{Start: 18, End: 8}},
		{"elasticity", cfg.Cohorts[0].Elasticity, 0.5},
		{"target", *cfg.Cohorts[1].TargetStorage, 8.0},
		{"profile", cfg.Pricing.Profile, "peak"},
		{"peak default", cfg.Pricing.Peak.Mu, 17.0},
		{"coupling", cfg.Pricing.Coupling, "linear"},
		{"method", cfg.Solver.Method, "auglag"},
		{"starts", cfg.Solver.Starts, 6},
		{"timeout", cfg.Solver.Timeout, 30 * time.Second},
		{"workers default", cfg.Solver.Workers, 4},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"mqtt.prefix", cfg.MQTT.TopicPrefix, "site"},
		{"mqtt.retain", cfg.MQTT.Retain, true},
		{"runlog.type", cfg.RunLog.Type, "sqlite"},
		{"server.interval", cfg.Server.Interval, 15 * time.Minute},
		{"server.addr", cfg.Server.Addr, ":8080"},
		{"export.csv", cfg.Export.CSV, "out.csv"},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.format", cfg.Logging.Format, "json"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}

	in, err := cfg.Input()
	require.NoError(t, err)
	assert.Equal(t, 24, in.Horizon)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 18, 19, 20, 21, 22, 23}, in.Cohorts[0].AvailableHours)
	assert.IsType(t, pricing.Peak{}, in.Profile)
	assert.IsType(t, pricing.Linear{}, in.Coupling)

	o := cfg.Solver.Orchestrator(nil)
	assert.Equal(t, "auglag", o.Method)
	assert.Equal(t, 6, o.Starts)
	assert.Equal(t, 30*time.Second, o.Timeout)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "config.json", `{"solver": {"starts": 2}, "pricing": {"constant": 3}}`)
	t.Setenv("DS_SOLVER__STARTS", "9")
	t.Setenv("DS_PRICING__PROFILE", "constant")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Solver.Starts)
	assert.Equal(t, 3.0, cfg.Pricing.Constant)
	assert.Equal(t, "quadratic", cfg.Pricing.Coupling)
}

func TestLoadCohortsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fleet.json"),
		[]byte(`[{"name": "a", "capacity": 5, "rate_max": 1, "available_hours": [0, 1, 2, 3, 4, 5, 6]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cohorts_file: fleet.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Cohorts, 1)
	assert.Equal(t, "a", cfg.Cohorts[0].Name)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"format":  "config.toml",
		"method":  "config.yaml",
		"mqtt":    "config.yaml",
		"profile": "config.yaml",
		"runlog":  "config.yaml",
	}
	bodies := map[string]string{
		"format":  "horizon = 24",
		"method":  "solver: {method: newton}",
		"mqtt":    "mqtt: {enabled: true}",
		"profile": "pricing: {profile: series}",
		"runlog":  "runlog: {type: parquet, path: x}",
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, file, bodies[name]))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInputReportsCohortErrors(t *testing.T) {
	cfg := Default()
	cfg.Cohorts = []CohortConfig{{Name: "bad", Capacity: 10, RateMax: 1, AvailableHours: []int{3}, InitialStorage: 20}}
	_, err := cfg.Input()
	var ce *model.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "initial_storage", ce.Field)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, model.DefaultHorizon, cfg.Horizon)
	assert.Equal(t, "constant", cfg.Pricing.Profile)
	assert.Equal(t, 5.0, cfg.Pricing.Constant)
	assert.Equal(t, "auto", cfg.Solver.Method)
	assert.Equal(t, "info", cfg.Logging.Level)

	cfg.Solver.AcceptTol = 1e-3
	assert.Error(t, cfg.Validate())
}

func TestExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	in, err := cfg.Input()
	require.NoError(t, err)
	require.Len(t, in.Cohorts, 3)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, in.Cohorts[1].AvailableHours)
	assert.Len(t, in.Cohorts[2].AvailableHours, 20)
	assert.Equal(t, 5*time.Second, cfg.MQTT.AckTimeout)
	assert.Equal(t, byte(1), cfg.MQTT.QoS["schedule"])
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", `pricing:
  profile: constant
  constant: 0
solver:
  starts: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Pricing.Constant)
	assert.Equal(t, 0, cfg.Solver.Starts)

	cfg.Cohorts = []CohortConfig{{Name: "a", Capacity: 2, RateMax: 1, AvailableHours: []int{0, 1}}}
	in, err := cfg.Input()
	require.NoError(t, err)
	prices, err := in.Profile.Series(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, prices)
	assert.Equal(t, 0, cfg.Solver.Orchestrator(nil).Starts)
}

func TestLoadDefaultsOmittedSections(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", "pricing: {profile: constant}\nsolver: {method: auglag}\n"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Pricing.Constant)
	assert.Equal(t, 4, cfg.Solver.Starts)
	assert.Equal(t, "auglag", cfg.Solver.Method)
	assert.Equal(t, 17.0, cfg.Pricing.Peak.Mu)
}
