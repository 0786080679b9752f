package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/runlog"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
	"github.com/zacharyweiss/demandscheduling/infra/mqtt"
)

// EnvPrefix marks environment overrides: DS_SOLVER__STARTS=8 sets
// solver.starts.
const EnvPrefix = "DS_"

// Config is the whole application configuration: the cohorts to plan, how
// prices are formed, how the model is solved and where results go.
type Config struct {
	Horizon     int            `json:"horizon"`
	Cohorts     []CohortConfig `json:"cohorts"`
	CohortsFile string         `json:"cohorts_file"`
	Pricing     PricingConfig  `json:"pricing"`
	Solver      SolverConfig   `json:"solver"`
	Metrics     metrics.Config `json:"metrics"`
	MQTT        mqtt.Config    `json:"mqtt"`
	RunLog      runlog.Config  `json:"runlog"`
	Server      ServerConfig   `json:"server"`
	Export      ExportConfig   `json:"export"`
	Logging     LoggingConfig  `json:"logging"`
}

// Default returns a configuration with every default applied and no
// cohorts.
func Default() *Config {
	cfg := &Config{Pricing: DefaultPricing(), Solver: DefaultSolver()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Horizon == 0 {
		c.Horizon = model.DefaultHorizon
	}
	c.Pricing.SetDefaults()
	c.Solver.SetDefaults()
	c.Logging.SetDefaults()
	c.Server.SetDefaults()
}

// Validate checks every section. Cohorts are validated by Input.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be > 0, got %d", c.Horizon)
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.RunLog.Validate(); err != nil {
		return err
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d].type is required", i)
		}
	}
	return nil
}

// Load reads a YAML or JSON file, applies DS_ environment overrides and
// decodes the result on top of Default. A relative cohorts_file is resolved
// against the directory of path.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.CohortsFile != "" && len(cfg.Cohorts) == 0 {
		p := cfg.CohortsFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		cohorts, err := LoadCohorts(p)
		if err != nil {
			return nil, err
		}
		cfg.Cohorts = cohorts
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Input resolves the cohorts and pricing into a scheduling input.
func (c *Config) Input() (scheduling.Input, error) {
	cohorts, err := ToCohorts(c.Cohorts, c.Horizon)
	if err != nil {
		return scheduling.Input{}, err
	}
	profile, err := c.Pricing.BuildProfile()
	if err != nil {
		return scheduling.Input{}, &model.ConfigError{Field: "pricing", Reason: err.Error()}
	}
	coupling, err := c.Pricing.BuildCoupling()
	if err != nil {
		return scheduling.Input{}, &model.ConfigError{Field: "pricing", Reason: err.Error()}
	}
	return scheduling.Input{Cohorts: cohorts, Horizon: c.Horizon, Profile: profile, Coupling: coupling}, nil
}
