// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import "fmt"

// Errors returned by Logger construction. Emission itself never returns
// errors: once a Logger exists, every failure terminates in the
// diagnostic side channel and the affected line is dropped.
var (
	// ErrInvalidSource is returned when the source name is not a
	// partition-safe identifier.
	ErrInvalidSource = fmt.Errorf("invalid source name")

	// ErrEmptyRoot is returned when no log root directory is configured.
	ErrEmptyRoot = fmt.Errorf("log root cannot be empty")

	// ErrBadTimezone is returned when the configured IANA timezone name
	// cannot be loaded.
	ErrBadTimezone = fmt.Errorf("invalid timezone")
)
