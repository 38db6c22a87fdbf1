// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

// Package retention ages out whole date= partitions. Deleting a
// partition directory is the only mutation hivelogd ever performs on
// the log tree; individual files inside a retained partition are never
// touched.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/hivelog/internal/logging"
	"github.com/tomtom215/hivelog/internal/metrics"
)

const datePrefix = "date="

// Sweeper removes date partitions older than the retention window.
type Sweeper struct {
	root       string
	loc        *time.Location
	maxAgeDays int
	interval   time.Duration

	// invalidate is called after partitions are removed so the query
	// engine drops any view bound to the deleted directories.
	invalidate func()

	// now is a test seam.
	now func() time.Time
}

// New creates a sweeper over root. maxAgeDays counts calendar days in
// loc: a partition is removed once its date is strictly older than
// today minus maxAgeDays. invalidate may be nil.
func New(root string, loc *time.Location, maxAgeDays int, interval time.Duration, invalidate func()) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		root:       root,
		loc:        loc,
		maxAgeDays: maxAgeDays,
		interval:   interval,
		invalidate: invalidate,
		now:        time.Now,
	}
}

// Sweep runs one pass and returns the number of partitions removed.
// Unparseable directory names are skipped, never deleted: a partition
// the sweeper does not understand is not the sweeper's to remove.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read log root: %w", err)
	}

	today := s.today()
	cutoff := today.AddDate(0, 0, -s.maxAgeDays)

	deleted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), datePrefix) {
			continue
		}
		dateStr := strings.TrimPrefix(entry.Name(), datePrefix)
		day, err := time.ParseInLocation("2006-01-02", dateStr, s.loc)
		if err != nil {
			logging.Warn().Str("partition", entry.Name()).Msg("Skipping partition with unparseable date")
			continue
		}
		if !day.Before(cutoff) {
			continue
		}

		path := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logging.Error().Err(err).Str("partition", entry.Name()).Msg("Failed to remove expired partition")
			continue
		}
		deleted++
		logging.Info().
			Str("partition", entry.Name()).
			Str("cutoff", cutoff.Format("2006-01-02")).
			Msg("Expired partition removed")
	}

	metrics.RecordSweep(deleted)
	if deleted > 0 && s.invalidate != nil {
		s.invalidate()
	}
	return deleted, nil
}

// Serve implements suture.Service: an immediate sweep, then one per
// interval until the context is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	logging.Info().
		Int("max_age_days", s.maxAgeDays).
		Dur("interval", s.interval).
		Msg("Retention sweeper started")

	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Retention sweep failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				logging.Error().Err(err).Msg("Retention sweep failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Sweeper) String() string {
	return "retention-sweeper"
}

// today returns midnight of the current day in the partition timezone.
func (s *Sweeper) today() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}
