package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BOTFLEET_*). Nested keys use a double
// underscore: BOTFLEET_SERVER__PORT maps to server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: BOTFLEET_META__VERIFY_TOKEN -> meta.verify_token.
	if err := k.Load(env.Provider("BOTFLEET_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "BOTFLEET_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PublicBase == "" {
		return fmt.Errorf("server.public_base is required (webhook callbacks are registered against it)")
	}
	if c.Session.MaxEntries <= 0 {
		return fmt.Errorf("session.max_entries must be positive, got %d", c.Session.MaxEntries)
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.OpenAI.Retries <= 0 {
		return fmt.Errorf("openai.retries must be positive, got %d", c.OpenAI.Retries)
	}
	if c.Eleven.Retries <= 0 {
		return fmt.Errorf("eleven.retries must be positive, got %d", c.Eleven.Retries)
	}
	switch c.Routing.Unmatched {
	case RoutingBroadcast, RoutingDrop:
	default:
		return fmt.Errorf("routing.unmatched must be %q or %q, got %q",
			RoutingBroadcast, RoutingDrop, c.Routing.Unmatched)
	}
	return nil
}
