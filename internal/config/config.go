// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

// Package config loads hivelogd configuration with Koanf v2 in three
// layers, highest priority last: struct defaults, a YAML config file,
// then HIVELOG_-prefixed environment variables.
package config

import "time"

// Config is the complete hivelogd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logs      LogsConfig      `koanf:"logs"`
	Query     QueryConfig     `koanf:"query"`
	Retention RetentionConfig `koanf:"retention"`
	Tail      TailConfig      `koanf:"tail"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP query API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitPerMin int           `koanf:"rate_limit_per_min" validate:"min=1"`
}

// LogsConfig describes the partitioned log tree being served.
type LogsConfig struct {
	// Root is the base directory of the date=/source= tree.
	Root string `koanf:"root" validate:"required"`

	// Timezone is the IANA zone governing partition dates and
	// local-time rendering in query results. Stored timestamps remain
	// UTC epoch nanoseconds.
	Timezone string `koanf:"timezone" validate:"required"`
}

// QueryConfig tunes the embedded DuckDB engine.
type QueryConfig struct {
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads" validate:"min=0"` // 0 = runtime.NumCPU()
	DefaultLimit int    `koanf:"default_limit" validate:"min=1"`
	MaxLimit     int    `koanf:"max_limit" validate:"min=1"`
}

// RetentionConfig configures the partition sweeper.
type RetentionConfig struct {
	Enabled       bool          `koanf:"enabled"`
	MaxAgeDays    int           `koanf:"max_age_days" validate:"min=1"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// TailConfig configures the live-tail websocket endpoint.
type TailConfig struct {
	Enabled bool `koanf:"enabled"`

	// ClientBuffer is the per-client line buffer; a client that falls
	// this far behind is disconnected rather than allowed to block the
	// fan-out.
	ClientBuffer int `koanf:"client_buffer" validate:"min=1"`
}

// LoggingConfig configures hivelogd's own diagnostic output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns the built-in defaults, applied before the
// config file and environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1", // operator-local surface by default
			Port:            8901,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitPerMin: 300,
		},
		Logs: LogsConfig{
			Root:     "/var/log/hivelog",
			Timezone: "UTC",
		},
		Query: QueryConfig{
			MaxMemory:    "512MB",
			Threads:      0,
			DefaultLimit: 100,
			MaxLimit:     10000,
		},
		Retention: RetentionConfig{
			Enabled:       true,
			MaxAgeDays:    30,
			SweepInterval: time.Hour,
		},
		Tail: TailConfig{
			Enabled:      true,
			ClientBuffer: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
