// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// PartitionDateLayout is the date format used in partition directory
// names. Readers infer a `date` column from it (Hive partitioning).
const PartitionDateLayout = "2006-01-02"

// FileExt is the extension of every sink file. The query surface globs
// on it; nothing else may be written under the log root.
const FileExt = ".ndjson"

// sourcePattern restricts partition source names to identifier-like
// strings. Anything that could traverse the filesystem (separators,
// dot-dot, leading dots) is rejected at construction time so a buggy or
// hostile source value can never escape the log root.
var sourcePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

// ValidateSource reports whether name is usable as a `source=` partition
// value. Returns ErrInvalidSource wrapped with the offending name.
func ValidateSource(name string) error {
	if name == "" || len(name) > 128 || !sourcePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSource, name)
	}
	return nil
}

// partitionDir returns <root>/date=<d>/source=<source> for the local
// calendar date d. Pure computation; the sink creates directories.
func partitionDir(root, source string, localDate string) string {
	return filepath.Join(root, "date="+localDate, "source="+source)
}

// localDate converts an instant to the calendar date in the configured
// display timezone. This is the date used for the partition directory,
// never the UTC date, so rollover aligns with the operator's day boundary.
func localDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(PartitionDateLayout)
}

// sinkFileName builds {epochSeconds}-{pid}-{random8hex}.ndjson. Each
// process-unique random token keeps concurrent writers (and restarts
// within the same second) on distinct files with overwhelming
// probability; no cross-process locking exists anywhere in the design.
func sinkFileName(openedAt time.Time, pid int, token string) string {
	return fmt.Sprintf("%d-%d-%s%s", openedAt.Unix(), pid, token, FileExt)
}

// randomToken returns 8 lowercase hex characters from crypto/rand.
func randomToken() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived token rather than propagating from a log call.
		return fmt.Sprintf("%08x", uint32(time.Now().UnixNano()))
	}
	return hex.EncodeToString(b[:])
}
