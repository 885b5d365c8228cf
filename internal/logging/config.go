package logging

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config describes how the process logs.
type Config struct {
	Level    zapcore.Level
	Format   string // "json" or "console"
	Output   OutputConfig
	Sampling SamplingConfig
	Caller   bool

	// Fields are attached to every entry, e.g. service and version.
	Fields map[string]string
}

// OutputConfig selects sinks. Stderr is for processes whose stdout carries
// a protocol, such as MCP over stdio.
type OutputConfig struct {
	Stdout bool
	Stderr bool
	OTEL   bool
}

// SamplingConfig limits repeated entries below error level: per Tick, the
// first Initial entries with a given message are kept, then every
// Thereafter-th.
type SamplingConfig struct {
	Enabled    bool
	Tick       time.Duration
	Initial    int
	Thereafter int
}

func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       time.Second,
			Initial:    100,
			Thereafter: 10,
		},
		Caller: true,
		Fields: map[string]string{"service": "issuetracker"},
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("format must be json or console, got %q", c.Format))
	}
	if c.Output == (OutputConfig{}) {
		errs = append(errs, errors.New("no output enabled (stdout, stderr or otel)"))
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick <= 0 {
			errs = append(errs, errors.New("sampling tick must be positive"))
		}
		if c.Sampling.Initial < 0 || c.Sampling.Thereafter < 0 {
			errs = append(errs, errors.New("sampling counts must not be negative"))
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			errs = append(errs, fmt.Errorf("static field %q=%q needs a key and a value", k, v))
		}
	}
	return errors.Join(errs...)
}
