// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

type options struct {
	tzName        string
	loc           *time.Location
	console       bool
	consoleLevel  Level
	consoleWriter io.Writer
	diag          *zerolog.Logger
	now           func() time.Time
}

// Option configures a Logger at construction time.
type Option func(*options)

// WithTimezone sets the IANA timezone governing partition-date
// computation (never the stored ts, which is always UTC epoch
// nanoseconds). Default: the process's local timezone.
func WithTimezone(name string) Option {
	return func(o *options) { o.tzName = name }
}

// WithLocation is WithTimezone for an already-loaded *time.Location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithConsole mirrors records at or above level to a human-readable
// console destination. The structured file sink is unaffected: every
// record reaches it regardless of level.
func WithConsole(level Level) Option {
	return func(o *options) {
		o.console = true
		o.consoleLevel = level
	}
}

// WithConsoleWriter overrides the console destination (default stderr).
// Implies nothing about the threshold; combine with WithConsole.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *options) { o.consoleWriter = w }
}

// WithDiagnostics sets the side channel that receives sink failures.
// Defaults to a zerolog logger on stderr. Diagnostics are rate-limited;
// logging must never flood, and never crash, the host application.
func WithDiagnostics(l zerolog.Logger) Option {
	return func(o *options) { o.diag = &l }
}

// withClock overrides the wall-clock source. Test seam.
func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
