package config

import (
	"time"

	"netcensus/internal/core/aggregate"
	"netcensus/internal/domain"
	"netcensus/internal/logger"
)

// Config is the root configuration structure
type Config struct {
	Version    int               `yaml:"version"`
	Database   DatabaseConfig    `yaml:"database"`
	Server     ServerConfig      `yaml:"server"`
	Logging    logger.Config     `yaml:"logging"`
	Snapshots  SnapshotConfig    `yaml:"snapshots"`
	Provenance ProvenanceConfig  `yaml:"provenance"`
	Scoring    aggregate.Weights `yaml:"scoring"`
	Output     OutputConfig      `yaml:"output"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// SnapshotConfig controls where snapshots are read from and how
type SnapshotConfig struct {
	Dir                string   `yaml:"dir"`
	Watch              bool     `yaml:"watch"`
	Debounce           Duration `yaml:"debounce"`
	MaxConcurrentParse int      `yaml:"max_concurrent_parse"`
}

// ProvenanceConfig classifies snapshot files by name.
// The first matching rule wins; unmatched files get Default.
type ProvenanceConfig struct {
	Default domain.Provenance       `yaml:"default"`
	Rules   []domain.ProvenanceRule `yaml:"rules,omitempty"`
}

// OutputConfig holds settings for the merged document
type OutputConfig struct {
	Version string `yaml:"version,omitempty"` // empty inherits the first snapshot's version
	Format  string `yaml:"format"`            // json, yaml
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
