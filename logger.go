// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the public logging entry point for one source. It assigns
// strictly increasing timestamps, resolves the hive partition for the
// current local date, and appends one NDJSON line per call.
//
// A Logger is safe for concurrent use by multiple goroutines; one
// mutex serializes timestamp allocation and the sink write, which is
// what preserves the per-instance strict ts ordering. Independent
// processes need no coordination at all: each owns a uniquely named
// file it alone appends to.
//
// No emit method ever returns an error or panics toward the caller.
// Logging is best-effort instrumentation; every failure terminates in
// the diagnostic side channel and costs at most the one line.
type Logger struct {
	mu    sync.Mutex
	clock *monotonicClock
	sink  *sink

	source string
	pid    int

	console      zerolog.Logger
	consoleOn    bool
	consoleLevel Level
}

// New creates a Logger writing under root for the given source.
// The source becomes the `source=` partition value and must be a
// partition-safe identifier; New fails with ErrInvalidSource otherwise.
func New(root, source string, opts ...Option) (*Logger, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	if err := ValidateSource(source); err != nil {
		return nil, err
	}

	o := options{
		consoleLevel:  LevelInfo,
		consoleWriter: os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	loc := o.loc
	if loc == nil {
		loc = time.Local
	}
	if o.tzName != "" {
		var err error
		loc, err = time.LoadLocation(o.tzName)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadTimezone, o.tzName, err)
		}
	}

	diag := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if o.diag != nil {
		diag = *o.diag
	}

	l := &Logger{
		clock:        newMonotonicClock(o.now),
		sink:         newSink(root, source, loc, diag),
		source:       source,
		pid:          os.Getpid(),
		consoleOn:    o.console,
		consoleLevel: o.consoleLevel,
	}
	if o.console {
		l.console = zerolog.New(zerolog.ConsoleWriter{
			Out:        o.consoleWriter,
			TimeFormat: "15:04:05",
			NoColor:    true,
		}).With().Timestamp().Logger()
	}
	return l, nil
}

// Debug emits a DEBUG record. Arguments are formatted fmt.Sprintf-style
// when present.
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }

// Info emits an INFO record.
func (l *Logger) Info(msg string, args ...interface{}) { l.log(LevelInfo, msg, args...) }

// Warning emits a WARNING record.
func (l *Logger) Warning(msg string, args ...interface{}) { l.log(LevelWarning, msg, args...) }

// Error emits an ERROR record.
func (l *Logger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }

// Critical emits a CRITICAL record.
func (l *Logger) Critical(msg string, args ...interface{}) { l.log(LevelCritical, msg, args...) }

// Close flushes nothing (every write already reached the OS) and
// releases the open file handle. Idempotent. A write after Close
// simply reopens a fresh file under the current partition.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink.close()
	return nil
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	file, line, fn := callsite(3)

	l.mu.Lock()
	rec := Record{
		Ts:     l.clock.next(),
		Level:  level,
		Source: l.source,
		Pid:    l.pid,
		File:   file,
		Line:   line,
		Func:   fn,
		Msg:    msg,
	}
	l.sink.write(&rec, l.clock.wallTime())
	l.mu.Unlock()

	if l.consoleOn && level >= l.consoleLevel {
		l.console.WithLevel(consoleLevel(level)).
			Str("source", l.source).
			Msg(msg)
	}
}

// callsite resolves the emitting frame. Only the base filename is
// recorded, never a full path.
func callsite(skip int) (file string, line int, fn string) {
	pc, path, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0, "unknown"
	}
	file = filepath.Base(path)
	fn = "unknown"
	if f := runtime.FuncForPC(pc); f != nil {
		name := f.Name()
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		fn = name
	}
	return file, line, fn
}

// consoleLevel maps record severities onto zerolog levels for the
// human-readable mirror. CRITICAL renders at fatal severity without
// zerolog's exit behavior (WithLevel never exits).
func consoleLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
