// Package config provides configuration loading for issuetracker.
//
// Configuration is built from defaults, then an optional YAML file, then
// environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete issuetracker configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Store         StoreConfig         `koanf:"store"`
	Events        EventsConfig        `koanf:"events"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       float64       `koanf:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int           `koanf:"rate_burst"`
}

// StoreConfig holds issue store configuration.
type StoreConfig struct {
	IDFormat string `koanf:"id_format"` // "timestamp" or "uuid"
}

// EventsConfig holds change feed configuration.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPProtocol    string `koanf:"otlp_protocol"` // "grpc" or "http/protobuf"
	OTLPInsecure    bool   `koanf:"otlp_insecure"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            3000,
			ShutdownTimeout: 10 * time.Second,
			RateBurst:       20,
		},
		Store: StoreConfig{
			IDFormat: "timestamp",
		},
		Events: EventsConfig{
			NATSURL:       "nats://localhost:4222",
			SubjectPrefix: "issues",
		},
		Observability: ObservabilityConfig{
			ServiceName:  "issuetracker",
			OTLPEndpoint: "localhost:4317",
			OTLPProtocol: "grpc",
			OTLPInsecure: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %v (must be >= 0)", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst must be >= 1 when rate limit is set, got %d", c.Server.RateBurst)
	}

	switch c.Store.IDFormat {
	case "timestamp", "uuid":
	default:
		return fmt.Errorf("invalid store id format: %q (must be timestamp or uuid)", c.Store.IDFormat)
	}

	if c.Events.Enabled {
		if c.Events.NATSURL == "" {
			return errors.New("events.nats_url required when events are enabled")
		}
		if c.Events.SubjectPrefix == "" {
			return errors.New("events.subject_prefix required when events are enabled")
		}
	}

	if c.Observability.EnableTelemetry {
		if c.Observability.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Observability.OTLPEndpoint == "" {
			return errors.New("otlp endpoint required when telemetry is enabled")
		}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q (must be json or console)", c.Logging.Format)
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
