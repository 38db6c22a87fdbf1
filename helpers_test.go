// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"io"

	"github.com/rs/zerolog"
)

// newTestDiag builds a diagnostic logger writing JSON to w, so tests
// can assert on side-channel output.
func newTestDiag(w io.Writer) zerolog.Logger {
	return zerolog.New(w)
}
