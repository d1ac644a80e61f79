// Package config provides configuration management for netcensus.
//
// The config file describes where snapshots come from, how they are
// classified and scored, and where merged inventories are stored. Every
// section is optional; missing values fall back to DefaultConfig.
//
// Config file locations (priority order):
//  1. $NETCENSUS_CONFIG
//  2. ./netcensus.yaml
//  3. $XDG_CONFIG_HOME/netcensus/config.yaml
//  4. ~/.config/netcensus/config.yaml
//  5. /etc/netcensus/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"netcensus/internal/core/aggregate"
	"netcensus/internal/domain"
	"netcensus/internal/logger"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Parse decodes a YAML document over the defaults and validates it
func Parse(data []byte) (*Config, error) {
	// Decode over defaults so partial sections such as scoring keep the
	// stock values for keys they omit
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultProvenanceRules classify SNMPv3 collections as higher trust and
// SNMPv2 collections as lower trust, by file name.
func DefaultProvenanceRules() []domain.ProvenanceRule {
	return []domain.ProvenanceRule{
		{Match: "v3", Provenance: domain.ProvenanceHigherTrust},
		{Match: "v2", Provenance: domain.ProvenanceLowerTrust},
	}
}

// DefaultAddr binds the API to loopback; set server.addr to expose it
const DefaultAddr = "127.0.0.1:3000"

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Database: DatabaseConfig{Path: "./netcensus.db"},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: logger.DefaultConfig(),
		Snapshots: SnapshotConfig{
			Dir:                "./scans",
			Debounce:           Duration(2 * time.Second),
			MaxConcurrentParse: runtime.NumCPU(),
		},
		Provenance: ProvenanceConfig{
			Default: domain.ProvenanceLowerTrust,
			Rules:   DefaultProvenanceRules(),
		},
		Scoring: aggregate.DefaultWeights(),
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Path == "" {
		c.Database.Path = "./netcensus.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Snapshots.MaxConcurrentParse <= 0 {
		c.Snapshots.MaxConcurrentParse = runtime.NumCPU()
	}
	if c.Provenance.Default == "" {
		c.Provenance.Default = domain.ProvenanceLowerTrust
	}
	if c.Output.Format == "" {
		c.Output.Format = "json"
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if !validProvenance(c.Provenance.Default) {
		return fmt.Errorf("provenance.default: unknown provenance %q", c.Provenance.Default)
	}
	for i, rule := range c.Provenance.Rules {
		if rule.Match == "" {
			return fmt.Errorf("provenance.rules[%d]: match is required", i)
		}
		if !validProvenance(rule.Provenance) {
			return fmt.Errorf("provenance.rules[%d]: unknown provenance %q", i, rule.Provenance)
		}
	}
	if c.Snapshots.Debounce < 0 {
		return errors.New("snapshots.debounce must not be negative")
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.format: unsupported format %q", c.Output.Format)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Database: %s, Listen: %s\n", c.Database.Path, c.Server.Addr)
	summary += fmt.Sprintf("Snapshots: %s (watch: %v, parallel: %d)\n",
		c.Snapshots.Dir, c.Snapshots.Watch, c.Snapshots.MaxConcurrentParse)
	summary += fmt.Sprintf("Provenance: default %s, %d rules", c.Provenance.Default, len(c.Provenance.Rules))

	return summary
}

func validProvenance(p domain.Provenance) bool {
	return p == domain.ProvenanceHigherTrust || p == domain.ProvenanceLowerTrust
}
