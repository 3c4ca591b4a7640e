package logging

import (
	"fmt"
	"path/filepath"
)

// Config selects the audit log backend.
type Config struct {
	// Backend is "jsonl", "rotating", "sqlite" or "none".
	Backend    string `json:"backend" koanf:"backend" validate:"omitempty,oneof=jsonl rotating sqlite none"`
	Path       string `json:"path" koanf:"path"`
	MaxSizeMB  int    `json:"max_size_mb" koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `json:"max_backups" koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `json:"max_age_days" koanf:"max_age_days" validate:"gte=0"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "rotating"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = filepath.Join("logs", "assignments.db")
		default:
			c.Path = filepath.Join("logs", "assignments.jsonl")
		}
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
}

// Open builds the configured store.
func Open(c Config) (LogStore, error) {
	switch c.Backend {
	case "none":
		return NopStore{}, nil
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "", "rotating":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	}
	return nil, fmt.Errorf("unknown audit backend %q", c.Backend)
}
