// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package hivelog

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Record is one immutable log event, serialized as a single NDJSON line.
//
// Ts is nanoseconds since the Unix epoch in UTC, regardless of the
// timezone used for partition dates. Within one Logger instance Ts is
// strictly increasing across successive records.
type Record struct {
	Ts     uint64 `json:"ts"`
	Level  Level  `json:"level"`
	Source string `json:"source"`
	Pid    int    `json:"pid"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Func   string `json:"func"`
	Msg    string `json:"msg"`
}

// AppendLine appends the record to buf as a JSON object terminated by
// a newline. Msg is free-form text; JSON escaping guarantees any content
// serializes rather than being rejected.
func (r *Record) AppendLine(buf []byte) ([]byte, error) {
	line, err := json.Marshal(r)
	if err != nil {
		// Unreachable for this field set (strings and integers only),
		// but the write contract must hold for any future shape.
		return buf, fmt.Errorf("marshal record: %w", err)
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')
	return buf, nil
}

// ParseLine decodes one NDJSON line into a Record. A trailing newline
// is tolerated.
func ParseLine(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(bytes.TrimRight(line, "\n"), &r); err != nil {
		return Record{}, fmt.Errorf("parse record line: %w", err)
	}
	return r, nil
}
