package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dronecoord/core/assignment/logging"
	"github.com/kilianp07/dronecoord/core/factory"
	"github.com/kilianp07/dronecoord/core/metrics"
	"github.com/kilianp07/dronecoord/infra/monitoring"
	"github.com/kilianp07/dronecoord/infra/mqtt"
)

type Config struct {
	Store     factory.ModuleConfig `json:"store"`
	Audit     logging.Config       `json:"audit"`
	Metrics   metrics.Config       `json:"metrics"`
	MQTT      mqtt.Config          `json:"mqtt"`
	API       APIConfig            `json:"api"`
	Log       LogConfig            `json:"log"`
	Conflicts ConflictScanConfig   `json:"conflicts"`
	Sentry    monitoring.Config    `json:"sentry"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = "csv"
	}
	if c.Store.Conf == nil {
		c.Store.Conf = map[string]any{}
	}
	if c.Store.Type == "csv" {
		if _, ok := c.Store.Conf["dir"]; !ok {
			c.Store.Conf["dir"] = "data"
		}
	}
	c.Audit.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.API.SetDefaults()
	c.Log.SetDefaults()
}

// Validate runs the struct tag rules then each section's own checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"metrics", c.Metrics},
		{"mqtt", c.MQTT},
		{"log", c.Log},
		{"conflicts", c.Conflicts},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", s.name, err)
		}
	}
	return nil
}

// Load reads path (yaml or json) and applies K_ prefixed environment
// overrides, using "__" as the key separator: K_MQTT__BROKER sets
// mqtt.broker. An empty path loads defaults plus the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
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
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
