// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// readLines returns the non-empty lines of every sink file under root,
// in per-file append order.
func readLines(t *testing.T, root string) [][]byte {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(root, "date=*", "source=*", "*"+FileExt))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	var lines [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(line) > 0 {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func readRecords(t *testing.T, root string) []Record {
	t.Helper()

	var recs []Record
	for _, line := range readLines(t, root) {
		rec, err := ParseLine(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "svc"); !errors.Is(err, ErrEmptyRoot) {
		t.Errorf("empty root: got %v, want ErrEmptyRoot", err)
	}
	if _, err := New(t.TempDir(), "../escape"); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("bad source: got %v, want ErrInvalidSource", err)
	}
	if _, err := New(t.TempDir(), "svc", WithTimezone("Not/AZone")); !errors.Is(err, ErrBadTimezone) {
		t.Errorf("bad timezone: got %v, want ErrBadTimezone", err)
	}
}

func TestEmitWritesDurableLine(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	log, err := New(root, "web_server", WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("request served in %dms", 42)

	// The line must be readable back before Close: every write is
	// flushed to the OS as part of the call.
	recs := readRecords(t, root)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}

	rec := recs[0]
	if rec.Level != LevelInfo {
		t.Errorf("level = %v", rec.Level)
	}
	if rec.Source != "web_server" {
		t.Errorf("source = %q", rec.Source)
	}
	if rec.Pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", rec.Pid, os.Getpid())
	}
	if rec.Msg != "request served in 42ms" {
		t.Errorf("msg = %q", rec.Msg)
	}
	if rec.File != "logger_test.go" {
		t.Errorf("file = %q, want base name only", rec.File)
	}
	if rec.Func != "TestEmitWritesDurableLine" {
		t.Errorf("func = %q", rec.Func)
	}
	if rec.Line <= 0 {
		t.Errorf("line = %d", rec.Line)
	}
	if rec.Ts == 0 {
		t.Error("ts must be set")
	}

	if err := log.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("second Close must be idempotent: %v", err)
	}
}

func TestEveryLevelReachesSink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var console bytes.Buffer

	// Console threshold is CRITICAL; the structured file threshold is
	// always DEBUG regardless.
	log, err := New(root, "svc",
		WithLocation(time.UTC),
		WithConsole(LevelCritical),
		WithConsoleWriter(&console))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	log.Debug("d")
	log.Info("i")
	log.Warning("w")
	log.Error("e")
	log.Critical("c")

	recs := readRecords(t, root)
	if len(recs) != 5 {
		t.Fatalf("file sink got %d records, want all 5", len(recs))
	}
	for i, want := range []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical} {
		if recs[i].Level != want {
			t.Errorf("record %d: level %v, want %v", i, recs[i].Level, want)
		}
	}

	out := console.String()
	if strings.Contains(out, "DBG") || strings.Contains(out, "INF") || strings.Contains(out, "WRN") {
		t.Errorf("console below threshold must stay silent, got %q", out)
	}
	if !strings.Contains(out, "FTL") {
		t.Errorf("console must show CRITICAL, got %q", out)
	}
}

func TestRolloverAtDateBoundary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	loc := time.FixedZone("CST", -6*3600)
	cur := time.Date(2026, 2, 12, 23, 59, 30, 0, loc)

	log, err := New(root, "svc",
		WithLocation(loc),
		withClock(func() time.Time { return cur }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	log.Info("before midnight")
	log.Info("still before midnight")

	oldFiles, _ := filepath.Glob(filepath.Join(root, "date=2026-02-12", "source=svc", "*"+FileExt))
	if len(oldFiles) != 1 {
		t.Fatalf("got %d files under date=2026-02-12, want 1", len(oldFiles))
	}
	oldData, err := os.ReadFile(oldFiles[0])
	if err != nil {
		t.Fatalf("read old file: %v", err)
	}

	cur = time.Date(2026, 2, 13, 0, 0, 5, 0, loc)
	log.Info("after midnight")

	newFiles, _ := filepath.Glob(filepath.Join(root, "date=2026-02-13", "source=svc", "*"+FileExt))
	if len(newFiles) != 1 {
		t.Fatalf("got %d files under date=2026-02-13, want exactly one new open", len(newFiles))
	}

	// No record may land in the stale file after rollover.
	after, err := os.ReadFile(oldFiles[0])
	if err != nil {
		t.Fatalf("re-read old file: %v", err)
	}
	if !bytes.Equal(oldData, after) {
		t.Error("stale file was written to after rollover")
	}

	newData, err := os.ReadFile(newFiles[0])
	if err != nil {
		t.Fatalf("read new file: %v", err)
	}
	rec, err := ParseLine(bytes.TrimRight(newData, "\n"))
	if err != nil {
		t.Fatalf("parse new file: %v", err)
	}
	if rec.Msg != "after midnight" {
		t.Errorf("new partition got %q", rec.Msg)
	}
}

func TestPartitionDateCrossesUTCMidnight(t *testing.T) {
	t.Parallel()

	// Wall clock 2026-02-13T05:30Z in UTC-6 is local 2026-02-12; the
	// partition must carry the local date.
	root := t.TempDir()
	loc := time.FixedZone("CST", -6*3600)
	wall := time.Date(2026, 2, 13, 5, 30, 0, 0, time.UTC)

	log, err := New(root, "svc",
		WithLocation(loc),
		withClock(func() time.Time { return wall }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	log.Info("boundary")

	if _, err := os.Stat(filepath.Join(root, "date=2026-02-12", "source=svc")); err != nil {
		t.Errorf("expected partition date=2026-02-12: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "date=2026-02-13")); !os.IsNotExist(err) {
		t.Error("UTC date partition must not exist")
	}
}

func TestEmitNeverPropagatesIOFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var diag bytes.Buffer

	loc := time.FixedZone("CST", -6*3600)
	wall := time.Date(2026, 2, 12, 12, 0, 0, 0, loc)

	// Plant a regular file where the date directory should go so the
	// sink's MkdirAll fails.
	if err := os.WriteFile(filepath.Join(root, "date=2026-02-12"), []byte("x"), 0o640); err != nil {
		t.Fatalf("plant file: %v", err)
	}

	log, err := New(root, "svc",
		WithLocation(loc),
		withClock(func() time.Time { return wall }),
		WithDiagnostics(newTestDiag(&diag)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	// Must return normally; the line is dropped.
	log.Error("this line is lost")

	if recs := readRecords(t, root); len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
	if !strings.Contains(diag.String(), "sink failure") {
		t.Errorf("diagnostic channel must record the failure, got %q", diag.String())
	}
}

func TestDiagnosticNamesAttemptedPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var diag bytes.Buffer

	loc := time.FixedZone("CST", -6*3600)
	cur := time.Date(2026, 2, 12, 12, 0, 0, 0, loc)

	log, err := New(root, "svc",
		WithLocation(loc),
		withClock(func() time.Time { return cur }),
		WithDiagnostics(newTestDiag(&diag)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	// A successful write leaves the sink holding the 02-12 file.
	log.Info("fine")

	// Block the next day's partition, then cross the boundary. The
	// failure diagnostic must name the directory the rollover tried to
	// create, not the previously open file.
	if err := os.WriteFile(filepath.Join(root, "date=2026-02-13"), []byte("x"), 0o640); err != nil {
		t.Fatalf("plant file: %v", err)
	}
	cur = time.Date(2026, 2, 13, 0, 0, 5, 0, loc)
	log.Error("dropped at boundary")

	out := diag.String()
	if !strings.Contains(out, "date=2026-02-13") {
		t.Errorf("diagnostic must name the attempted partition path, got %q", out)
	}
	if strings.Contains(out, "date=2026-02-12") {
		t.Errorf("diagnostic must not blame the previous file, got %q", out)
	}
}

func TestEmitRecoversAfterInvalidatedHandle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var diag bytes.Buffer

	log, err := New(root, "svc",
		WithLocation(time.UTC),
		WithDiagnostics(newTestDiag(&diag)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	log.Info("first")

	// Forcibly invalidate the open handle underneath the sink.
	log.mu.Lock()
	log.sink.f.Close()
	log.mu.Unlock()

	log.Info("dropped")
	if !strings.Contains(diag.String(), "sink failure") {
		t.Fatalf("expected a diagnostic for the dropped line, got %q", diag.String())
	}

	// The next write retries the full open path and succeeds.
	log.Info("recovered")

	var msgs []string
	for _, rec := range readRecords(t, root) {
		msgs = append(msgs, rec.Msg)
	}
	if len(msgs) != 2 || msgs[0] != "first" || msgs[1] != "recovered" {
		t.Errorf("got messages %v, want [first recovered]", msgs)
	}
}

func TestConcurrentEmitKeepsStrictOrdering(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	log, err := New(root, "svc", WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Close()

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				log.Info("g=%d i=%d", g, i)
			}
		}(g)
	}
	wg.Wait()

	recs := readRecords(t, root)
	if len(recs) != goroutines*perGoroutine {
		t.Fatalf("got %d records, want %d", len(recs), goroutines*perGoroutine)
	}
	// One instance, one file: ts must be strictly increasing in append
	// order even under concurrent callers.
	for i := 1; i < len(recs); i++ {
		if recs[i].Ts <= recs[i-1].Ts {
			t.Fatalf("record %d: ts %d not greater than previous %d", i, recs[i].Ts, recs[i-1].Ts)
		}
	}
}
