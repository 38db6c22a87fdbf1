// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package query

import "strings"

// WhereBuilder constructs parameterized WHERE clauses for queries
// against the logs view. A date filter hits the hive partition column
// and prunes whole directories without reading file contents.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddDate pins the query to one date partition (fast path: partition
// pruning via the directory name).
func (wb *WhereBuilder) AddDate(date string) *WhereBuilder {
	wb.clauses = append(wb.clauses, "date = ?")
	wb.args = append(wb.args, date)
	return wb
}

// AddWindowMinutes restricts to records whose ts falls within the last
// n minutes. ts is epoch nanoseconds, so the boundary is computed in
// nanosecond space on the DuckDB side.
func (wb *WhereBuilder) AddWindowMinutes(n int) *WhereBuilder {
	wb.clauses = append(wb.clauses, "CAST(ts AS BIGINT) >= epoch_ns(now() - to_minutes(CAST(? AS BIGINT)))")
	wb.args = append(wb.args, n)
	return wb
}

// AddSource filters on the source partition column.
func (wb *WhereBuilder) AddSource(source string) *WhereBuilder {
	wb.clauses = append(wb.clauses, "source = ?")
	wb.args = append(wb.args, source)
	return wb
}

// AddLevel filters on the record severity name.
func (wb *WhereBuilder) AddLevel(level string) *WhereBuilder {
	wb.clauses = append(wb.clauses, "level = ?")
	wb.args = append(wb.args, strings.ToUpper(level))
	return wb
}

// AddKeyword adds a case-insensitive substring match on msg. DuckDB
// has no default LIKE escape character, so the clause must declare one
// for the escaping in escapeLike to apply.
func (wb *WhereBuilder) AddKeyword(keyword string) *WhereBuilder {
	wb.clauses = append(wb.clauses, `msg ILIKE ? ESCAPE '\'`)
	wb.args = append(wb.args, "%"+escapeLike(keyword)+"%")
	return wb
}

// Build returns the clause body (no WHERE keyword) and its arguments.
// Returns ("1=1", nil args) when nothing was added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// escapeLike neutralizes LIKE metacharacters in user keywords so a
// literal "%" searches for a percent sign.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
