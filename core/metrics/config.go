package metrics

import (
	"fmt"

	"github.com/kilianp07/dronecoord/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" koanf:"sinks"`
	// PrometheusPort serves /metrics on a dedicated listener when set.
	// The API server exposes /metrics as well, so it is usually empty.
	PrometheusPort string `json:"prometheus_port" koanf:"prometheus_port"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type required", i)
		}
	}
	return nil
}
