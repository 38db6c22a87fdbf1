// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import "time"

// monotonicClock allocates strictly increasing nanosecond epoch
// timestamps for one Logger instance. If the wall clock reads the same
// nanosecond twice (or steps backwards), the allocator returns last+1 so
// no two records from the same instance ever carry equal or decreasing ts.
//
// Ordering is per-instance only. Independent processes writing to the
// same partition are ordered only approximately, by their own wall clocks.
//
// Not safe for concurrent use on its own; the Logger serializes access.
type monotonicClock struct {
	now  func() time.Time
	last uint64
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

// next returns the allocated timestamp. It never fails and never blocks.
func (c *monotonicClock) next() uint64 {
	ts := uint64(c.now().UnixNano())
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// wallTime exposes the raw wall clock for partition-date computation,
// which deliberately does not use the adjusted allocator value: the
// partition date tracks the operator's calendar, not the monotonic floor.
func (c *monotonicClock) wallTime() time.Time {
	return c.now()
}
