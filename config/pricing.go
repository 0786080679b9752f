package config

import (
	"fmt"
	"strings"

	"github.com/zacharyweiss/demandscheduling/core/pricing"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
)

// PeakConfig holds the Gaussian profile parameters.
type PeakConfig struct {
	Offset    float64 `json:"offset"`
	Amplitude float64 `json:"amplitude"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
}

// PricingConfig selects the base price profile and the demand coupling.
type PricingConfig struct {
	// Profile is "constant", "peak" or "series".
	Profile  string     `json:"profile"`
	Constant float64    `json:"constant"`
	Peak     PeakConfig `json:"peak"`
	Series   []float64  `json:"series"`
	// Coupling is "quadratic" or "linear".
	Coupling string `json:"coupling"`
}

// DefaultPricing returns the pricing section used when none is configured.
// Load decodes the file on top of it, so an explicit constant: 0 survives.
func DefaultPricing() PricingConfig {
	c := PricingConfig{Constant: scheduling.DefaultBasePrice}
	c.SetDefaults()
	return c
}

// SetDefaults fills empty names and the peak shape. Constant is left alone
// because zero is a valid base price.
func (c *PricingConfig) SetDefaults() {
	if c.Profile == "" {
		c.Profile = "constant"
	}
	if c.Peak == (PeakConfig{}) {
		d := pricing.DefaultPeak()
		c.Peak = PeakConfig{Offset: d.Offset, Amplitude: d.Amplitude, Mu: d.Mu, Sigma: d.Sigma}
	}
	if c.Coupling == "" {
		c.Coupling = "quadratic"
	}
}

// Validate checks mandatory fields.
func (c PricingConfig) Validate() error {
	if _, err := c.BuildProfile(); err != nil {
		return err
	}
	_, err := c.BuildCoupling()
	return err
}

// BuildProfile returns the configured profile.
func (c PricingConfig) BuildProfile() (pricing.Profile, error) {
	switch strings.ToLower(c.Profile) {
	case "constant":
		return pricing.Constant{Price: c.Constant}, nil
	case "peak":
		if c.Peak.Sigma <= 0 {
			return nil, fmt.Errorf("pricing.peak.sigma must be positive")
		}
		return pricing.Peak{Offset: c.Peak.Offset, Amplitude: c.Peak.Amplitude, Mu: c.Peak.Mu, Sigma: c.Peak.Sigma}, nil
	case "series":
		if len(c.Series) == 0 {
			return nil, fmt.Errorf("pricing.series is required for the series profile")
		}
		return pricing.Series{Values: c.Series}, nil
	default:
		return nil, fmt.Errorf("unknown pricing profile %s", c.Profile)
	}
}

// BuildCoupling returns the configured coupling.
func (c PricingConfig) BuildCoupling() (pricing.Coupling, error) {
	return pricing.ParseCoupling(c.Coupling)
}
