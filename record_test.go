// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  Record
	}{
		{
			"plain",
			Record{Ts: 1755961200123456789, Level: LevelInfo, Source: "web_server",
				Pid: 4242, File: "handler.go", Line: 87, Func: "handleRequest", Msg: "request served"},
		},
		{
			"max u64 ts survives exactly",
			Record{Ts: math.MaxUint64, Level: LevelCritical, Source: "s", Pid: 1,
				File: "a.go", Line: 1, Func: "f", Msg: "m"},
		},
		{
			"embedded quotes and newlines",
			Record{Ts: 1, Level: LevelError, Source: "api.gateway", Pid: 99,
				File: "b.go", Line: 2, Func: "g",
				Msg: "panic: \"boom\"\n\tstack line 1\n\tstack line 2"},
		},
		{
			"non-ascii content",
			Record{Ts: 2, Level: LevelDebug, Source: "worker", Pid: 7,
				File: "c.go", Line: 3, Func: "h", Msg: "útf-8 ✓ \x00 and control \x1b chars"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			line, err := tt.rec.AppendLine(nil)
			if err != nil {
				t.Fatalf("AppendLine: %v", err)
			}
			if !bytes.HasSuffix(line, []byte("\n")) {
				t.Fatal("line must be newline-terminated")
			}
			if bytes.Count(line, []byte("\n")) != 1 {
				t.Fatal("serialized record must be exactly one line")
			}

			got, err := ParseLine(line)
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			if got != tt.rec {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tt.rec)
			}
		})
	}
}

func TestRecordLevelNames(t *testing.T) {
	t.Parallel()

	rec := Record{Ts: 1, Level: LevelWarning, Source: "s", Pid: 1, File: "f.go", Line: 1, Func: "f", Msg: "m"}
	line, err := rec.AppendLine(nil)
	if err != nil {
		t.Fatalf("AppendLine: %v", err)
	}
	if !strings.Contains(string(line), `"level":"WARNING"`) {
		t.Errorf("level must serialize as its canonical name, got %s", line)
	}
}

func TestParseLineRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ParseLine([]byte(`{"ts": not json`)); err == nil {
		t.Error("expected error for malformed line")
	}
}
