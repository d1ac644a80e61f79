// Package logger builds structured zerolog loggers from configuration.
//
// Components receive a zerolog.Logger rather than reaching for a global, and
// tag it with WithComponent so every line names its origin.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config controls log level, destination and encoding
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	Format     string `json:"format" yaml:"format"`
	TimeFormat string `json:"time_format,omitempty" yaml:"time_format,omitempty"`
}

// DefaultConfig logs info and above as JSON to stderr
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: "stderr",
		Format: FormatJSON,
	}
}

// New builds a logger from cfg
func New(cfg Config) (zerolog.Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", cfg.Output)
	}
	return NewWithWriter(cfg, out)
}

// NewWithWriter builds a logger from cfg that writes to w
func NewWithWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
		}
	}

	timeFormat := time.RFC3339
	if cfg.TimeFormat != "" {
		timeFormat = cfg.TimeFormat
	}

	switch cfg.Format {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zerolog.TimeFieldFormat = timeFormat

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// WithComponent tags a logger with a component name
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
