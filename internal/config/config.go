// Package config loads server.toml, following the TOML-configuration
// convention used across the katzenpost daemons (see mailproxy's
// generated mailproxy.toml: bracketed sections, PascalCase keys).
package config

import (
	"github.com/BurntSushi/toml"
)

// Server holds the listener configuration.
type Server struct {
	// ListenAddress is the TCP address the keyspace server accepts
	// connections on.
	ListenAddress string

	// MetricsAddress is the address the Prometheus /metrics endpoint is
	// served on. Empty disables metrics.
	MetricsAddress string
}

// Logging holds logging configuration.
type Logging struct {
	// Level is one of DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL.
	Level string

	// Disable silences all logging output below CRITICAL.
	Disable bool
}

// Limits holds the blocking-coordinator's buffer sizing, per spec §9's
// open question on notification back-pressure.
type Limits struct {
	// StreamNotifyBuffer is the per-waiter channel capacity for XREAD
	// wake notifications.
	StreamNotifyBuffer int

	// ListNotifyBuffer is the per-waiter channel capacity for BLPOP wake
	// notifications.
	ListNotifyBuffer int
}

// Config is the top-level server.toml shape.
type Config struct {
	Server  Server
	Logging Logging
	Limits  Limits
}

// Defaults returns the configuration used when no config file is given.
func Defaults() *Config {
	return &Config{
		Server: Server{
			ListenAddress:  "127.0.0.1:6379",
			MetricsAddress: "",
		},
		Logging: Logging{
			Level:   "NOTICE",
			Disable: false,
		},
		Limits: Limits{
			StreamNotifyBuffer: 100,
			ListNotifyBuffer:   1,
		},
	}
}

// Load reads and parses a server.toml file, filling in any zero-valued
// field from Defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = Defaults().Server.ListenAddress
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = Defaults().Logging.Level
	}
	if cfg.Limits.StreamNotifyBuffer == 0 {
		cfg.Limits.StreamNotifyBuffer = Defaults().Limits.StreamNotifyBuffer
	}
	if cfg.Limits.ListNotifyBuffer == 0 {
		cfg.Limits.ListNotifyBuffer = Defaults().Limits.ListNotifyBuffer
	}
	return cfg, nil
}
