// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"testing"
	"time"
)

func TestMonotonicClockFrozenWallClock(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2026, 2, 12, 18, 0, 0, 0, time.UTC)
	c := newMonotonicClock(func() time.Time { return frozen })

	base := uint64(frozen.UnixNano())
	for i := 0; i < 5; i++ {
		got := c.next()
		want := base + uint64(i)
		if got != want {
			t.Fatalf("call %d: got %d, want %d", i, got, want)
		}
	}
}

func TestMonotonicClockBackwardsWallClock(t *testing.T) {
	t.Parallel()

	times := []time.Time{
		time.Date(2026, 2, 12, 18, 0, 0, 500, time.UTC),
		time.Date(2026, 2, 12, 18, 0, 0, 100, time.UTC), // clock stepped back
		time.Date(2026, 2, 12, 18, 0, 0, 200, time.UTC), // still behind last
	}
	i := 0
	c := newMonotonicClock(func() time.Time { t := times[i]; i++; return t })

	first := c.next()
	second := c.next()
	third := c.next()

	if second != first+1 {
		t.Errorf("backwards clock: got %d, want %d", second, first+1)
	}
	if third != second+1 {
		t.Errorf("lagging clock: got %d, want %d", third, second+1)
	}
}

func TestMonotonicClockAdvancingWallClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 12, 18, 0, 0, 0, time.UTC)
	c := newMonotonicClock(func() time.Time { return now })

	got := c.next()
	if got != uint64(now.UnixNano()) {
		t.Fatalf("got %d, want wall clock %d", got, now.UnixNano())
	}

	now = now.Add(3 * time.Millisecond)
	got = c.next()
	if got != uint64(now.UnixNano()) {
		t.Fatalf("advancing clock must pass through: got %d, want %d", got, now.UnixNano())
	}
}

func TestMonotonicClockStrictlyIncreasingSequence(t *testing.T) {
	t.Parallel()

	c := newMonotonicClock(nil)

	var last uint64
	for i := 0; i < 100000; i++ {
		ts := c.next()
		if ts <= last {
			t.Fatalf("call %d: ts %d not greater than previous %d", i, ts, last)
		}
		last = ts
	}
}
