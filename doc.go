// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

// Package hivelog writes structured application logs as newline-delimited
// JSON into a hive-partitioned directory tree that an embedded analytical
// engine can read directly as a relational table:
//
//	<root>/date=2026-08-23/source=web_server/1755961200-4242-9f3a01bc.ndjson
//
// Each record carries an epoch-nanosecond timestamp that is strictly
// increasing within a Logger instance, the severity, the source name, the
// writer's pid, call-site metadata and the message:
//
//	{"ts":1755961200123456789,"level":"INFO","source":"web_server","pid":4242,
//	 "file":"handler.go","line":87,"func":"handleRequest","msg":"request served"}
//
// # Usage
//
//	log, err := hivelog.New("/var/log/app", "web_server",
//	    hivelog.WithTimezone("America/Chicago"),
//	    hivelog.WithConsole(hivelog.LevelInfo))
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//
//	log.Info("listening on %s", addr)
//	log.Error("upstream failed: %v", err)
//
// # Guarantees
//
//   - Per-instance strict ts ordering, even under rapid-fire calls and
//     clock steps; cross-process ordering is approximate wall-clock only.
//   - Partition dates follow the configured display timezone and roll
//     over mid-process; a record never lands in a stale date partition.
//   - Filenames embed open-second, pid and a random token, so any number
//     of uncoordinated processes can share one log root.
//   - Every write is flushed to the OS before the call returns, and each
//     line is a single atomic append, so concurrent readers see whole
//     lines or nothing.
//   - Emit calls never fail: I/O errors drop the affected line and go to
//     a rate-limited diagnostic channel.
//
// The companion daemon hivelogd (cmd/hivelogd) serves the same tree
// through an embedded DuckDB view with hive partition pruning, enforces
// retention by deleting whole date partitions, and streams live records
// over websockets.
package hivelog
