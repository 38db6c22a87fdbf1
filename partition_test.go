// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func TestValidateSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		ok     bool
	}{
		{"plain", "web_server", true},
		{"dotted", "api.gateway", true},
		{"dashed", "task-worker", true},
		{"digits", "worker2", true},
		{"leading digit", "2worker", true},
		{"empty", "", false},
		{"path separator", "a/b", false},
		{"backslash", `a\b`, false},
		{"dot dot escape", "..", false},
		{"leading dot", ".hidden", false},
		{"parent escape", "../../etc", false},
		{"space", "web server", false},
		{"hive injection", "x=y", false},
		{"null byte", "a\x00b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSource(tt.source)
			if tt.ok && err != nil {
				t.Errorf("ValidateSource(%q) = %v, want nil", tt.source, err)
			}
			if !tt.ok {
				if err == nil {
					t.Errorf("ValidateSource(%q) = nil, want error", tt.source)
				} else if !errors.Is(err, ErrInvalidSource) {
					t.Errorf("ValidateSource(%q) = %v, want ErrInvalidSource", tt.source, err)
				}
			}
		})
	}
}

func TestLocalDateUsesDisplayTimezone(t *testing.T) {
	t.Parallel()

	// 05:30 UTC is still the previous day in UTC-6. The partition must
	// carry the local date, never the UTC date.
	wall := time.Date(2026, 2, 13, 5, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		loc  *time.Location
		want string
	}{
		{"utc", time.UTC, "2026-02-13"},
		{"utc minus six", time.FixedZone("CST", -6*3600), "2026-02-12"},
		{"utc plus nine", time.FixedZone("JST", 9*3600), "2026-02-13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := localDate(wall, tt.loc); got != tt.want {
				t.Errorf("localDate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartitionDirLayout(t *testing.T) {
	t.Parallel()

	got := partitionDir("/var/log/app", "web_server", "2026-02-12")
	want := filepath.Join("/var/log/app", "date=2026-02-12", "source=web_server")
	if got != want {
		t.Errorf("partitionDir = %q, want %q", got, want)
	}
}

func TestSinkFileNameFormat(t *testing.T) {
	t.Parallel()

	openedAt := time.Unix(1755961200, 999) // sub-second part must not leak in
	name := sinkFileName(openedAt, 4242, "9f3a01bc")
	if name != "1755961200-4242-9f3a01bc.ndjson" {
		t.Errorf("sinkFileName = %q", name)
	}
}

func TestRandomTokenUniqueness(t *testing.T) {
	t.Parallel()

	// With epoch-second and pid held fixed, the token alone must keep
	// 10k generated names collision-free.
	tokenFormat := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok := randomToken()
		if !tokenFormat.MatchString(tok) {
			t.Fatalf("token %q does not match 8-hex format", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("token collision after %d draws: %q", i, tok)
		}
		seen[tok] = struct{}{}
	}
}
