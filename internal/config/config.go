package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the lookup service.
type ServerConfig struct {
	Listen        string `yaml:"listen"`
	AllowedOrigin string `yaml:"allowed_origin"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes"`
	// Resolver is a nameserver "host:port" queried directly for DNS checks.
	// Empty means the system resolver.
	Resolver  string    `yaml:"resolver"`
	Timeouts  Timeouts  `yaml:"timeouts"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Timeouts bound each kind of check.
type Timeouts struct {
	DNS  time.Duration `yaml:"dns"`
	TCP  time.Duration `yaml:"tcp"`
	HTTP time.Duration `yaml:"http"`
}

// RateLimit caps lookups per client IP per window.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default returns the configuration used when no file is given.
func Default() *ServerConfig {
	return &ServerConfig{
		Listen:        ":8080",
		AllowedOrigin: "*",
		MaxBodyBytes:  64 << 10,
		Timeouts: Timeouts{
			DNS:  2 * time.Second,
			TCP:  3 * time.Second,
			HTTP: 5 * time.Second,
		},
		RateLimit: RateLimit{
			Requests: 30,
			Window:   time.Minute,
		},
	}
}

// Load reads and parses a pulse.yaml config file. Settings missing from the
// file keep their defaults.
func Load(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *ServerConfig) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.Timeouts.DNS <= 0 || c.Timeouts.TCP <= 0 || c.Timeouts.HTTP <= 0 {
		return fmt.Errorf("timeouts must be positive, got dns=%s tcp=%s http=%s",
			c.Timeouts.DNS, c.Timeouts.TCP, c.Timeouts.HTTP)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit requires positive requests and window, got %d per %s",
			c.RateLimit.Requests, c.RateLimit.Window)
	}
	return nil
}
