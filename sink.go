// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/hivelog/internal/metrics"
)

// sink owns one append-only file per calendar day for a single
// (logger, source) pair. It is CLOSED until the first write, then OPEN
// on exactly one date; a write arriving after the local date advanced
// closes the old handle and opens a new file under the new partition.
//
// Failure policy per the write contract: an open or write error is
// reported to the diagnostic channel, the line is dropped, and the
// handle is discarded so the next write retries the full open path.
// Nothing here ever returns an error to the emitting caller.
//
// The Logger serializes all access; sink has no locking of its own.
type sink struct {
	root   string
	source string
	loc    *time.Location
	pid    int

	f    *os.File
	date string // local date the open handle belongs to, "" when closed
	path string
	buf  []byte // reused line buffer

	diag     zerolog.Logger
	diagRate *rate.Limiter
}

func newSink(root, source string, loc *time.Location, diag zerolog.Logger) *sink {
	return &sink{
		root:   root,
		source: source,
		loc:    loc,
		pid:    os.Getpid(),
		buf:    make([]byte, 0, 512),
		diag:   diag,
		// Sustained I/O failure (full disk, revoked mount) would
		// otherwise emit one diagnostic per dropped line.
		diagRate: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// write serializes r and appends it as one line to the file for the
// given wall-clock instant's local date, opening or rolling over first
// if needed. Durability: the data reaches the OS buffer cache before
// write returns; there is no userspace buffering to lose in a crash.
func (s *sink) write(r *Record, wall time.Time) {
	day := localDate(wall, s.loc)
	if s.f == nil || s.date != day {
		if !s.rollover(day, wall) {
			metrics.RecordWriteError(s.source, "open")
			return
		}
	}

	line, err := r.AppendLine(s.buf[:0])
	if err != nil {
		s.report("serialize", s.path, err)
		metrics.RecordWriteError(s.source, "write")
		return
	}
	s.buf = line[:0]

	if _, err := s.f.Write(line); err != nil {
		s.report("write", s.path, err)
		metrics.RecordWriteError(s.source, "write")
		// Discard the handle; the next write reopens from scratch.
		_ = s.f.Close()
		s.f = nil
		s.date = ""
		s.path = ""
		return
	}
	metrics.RecordWrite(s.source, r.Level.String(), len(line))
}

// rollover moves the sink to OPEN(day). Returns false when the new file
// could not be opened; the sink stays CLOSED and the caller drops the line.
func (s *sink) rollover(day string, wall time.Time) bool {
	if s.f != nil {
		// Close errors are diagnostic-only; the old file already holds
		// every line acknowledged so far.
		if err := s.f.Close(); err != nil {
			s.report("close", s.path, err)
			metrics.RecordWriteError(s.source, "close")
		}
		s.f = nil
		s.date = ""
		s.path = ""
		metrics.RecordRollover(s.source)
	}

	dir := partitionDir(s.root, s.source, day)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		s.report("open", dir, err)
		return false
	}

	path := filepath.Join(dir, sinkFileName(wall, s.pid, randomToken()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		s.report("open", path, err)
		return false
	}

	s.f = f
	s.date = day
	s.path = path
	return true
}

// close releases the open handle, if any. Safe to call when CLOSED.
func (s *sink) close() {
	if s.f == nil {
		return
	}
	if err := s.f.Close(); err != nil {
		s.report("close", s.path, err)
		metrics.RecordWriteError(s.source, "close")
	}
	s.f = nil
	s.date = ""
	s.path = ""
}

// report sends a failure to the diagnostic side channel, rate-limited.
// path is the file (or directory) the failed operation was aimed at,
// which on an open failure is not the previously open file.
func (s *sink) report(stage, path string, err error) {
	if !s.diagRate.Allow() {
		return
	}
	s.diag.Error().
		Err(err).
		Str("source", s.source).
		Str("stage", stage).
		Str("path", path).
		Msg("hivelog sink failure, line dropped")
}
