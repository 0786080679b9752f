package metrics

import "github.com/zacharyweiss/demandscheduling/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
