package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LogConfig controls application logging. LOG_LEVEL and APP_ENV still apply
// when the level is left empty.
type LogConfig struct {
	Level string `json:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

// SetDefaults applies sane defaults.
func (c *LogConfig) SetDefaults() {}

// Validate checks that the level parses.
func (c LogConfig) Validate() error {
	if c.Level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level %q: %w", c.Level, err)
	}
	return nil
}
