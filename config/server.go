package config

import (
	"errors"
	"time"
)

// ServerConfig drives the long-running serve mode.
type ServerConfig struct {
	Addr string `json:"addr"`
	// Token protects /api/runs when set.
	Token string `json:"token"`
	// Interval between two planning runs.
	Interval time.Duration `json:"interval"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Interval == 0 {
		c.Interval = time.Hour
	}
}

func (c ServerConfig) Validate() error {
	if c.Interval < time.Second {
		return errors.New("server.interval must be at least 1s")
	}
	return nil
}
