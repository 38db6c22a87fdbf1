// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first, then the semantic constraints the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.LoadLocation(c.Logs.Timezone); err != nil {
		return fmt.Errorf("logs.timezone %q is not a valid IANA zone: %w", c.Logs.Timezone, err)
	}

	if c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit %d exceeds query.max_limit %d",
			c.Query.DefaultLimit, c.Query.MaxLimit)
	}

	if c.Retention.Enabled && c.Retention.SweepInterval < time.Minute {
		return fmt.Errorf("retention.sweep_interval %s is below the 1m minimum", c.Retention.SweepInterval)
	}

	return nil
}

// Location returns the loaded partition timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Logs.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
