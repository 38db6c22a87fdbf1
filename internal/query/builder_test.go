// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package query

import (
	"reflect"
	"strings"
	"testing"
)

func TestWhereBuilderEmpty(t *testing.T) {
	t.Parallel()

	clause, args := NewWhereBuilder().Build()
	if clause != "1=1" {
		t.Errorf("empty builder clause = %q, want 1=1", clause)
	}
	if len(args) != 0 {
		t.Errorf("empty builder args = %v, want none", args)
	}
}

func TestWhereBuilderComposition(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder().
		AddDate("2026-02-12").
		AddSource("api").
		AddLevel("error").
		AddKeyword("timeout")
	clause, args := wb.Build()

	wantClause := `date = ? AND source = ? AND level = ? AND msg ILIKE ? ESCAPE '\'`
	if clause != wantClause {
		t.Errorf("clause = %q, want %q", clause, wantClause)
	}
	wantArgs := []interface{}{"2026-02-12", "api", "ERROR", "%timeout%"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestWhereBuilderWindow(t *testing.T) {
	t.Parallel()

	clause, args := NewWhereBuilder().AddWindowMinutes(30).Build()
	if !strings.Contains(clause, "epoch_ns") {
		t.Errorf("window clause must compare in nanosecond space, got %q", clause)
	}
	if strings.Contains(clause, "30") {
		t.Errorf("window must be parameterized, got %q", clause)
	}
	if len(args) != 1 || args[0] != 30 {
		t.Errorf("args = %v, want [30]", args)
	}
}

func TestWhereBuilderLevelUppercased(t *testing.T) {
	t.Parallel()

	_, args := NewWhereBuilder().AddLevel("warning").Build()
	if args[0] != "WARNING" {
		t.Errorf("level arg = %v, want WARNING", args[0])
	}
}

func TestKeywordEscaping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "%plain%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tt := range tests {
		clause, args := NewWhereBuilder().AddKeyword(tt.in).Build()
		if args[0] != tt.want {
			t.Errorf("AddKeyword(%q) arg = %q, want %q", tt.in, args[0], tt.want)
		}
		// The escapes are inert unless the clause declares the escape
		// character; DuckDB has no default one.
		if !strings.Contains(clause, `ESCAPE '\'`) {
			t.Errorf("AddKeyword(%q) clause = %q, missing ESCAPE declaration", tt.in, clause)
		}
	}
}

func TestCheckReadOnly(t *testing.T) {
	t.Parallel()

	allowed := []string{
		"SELECT * FROM logs",
		"select count(*) from logs;",
		"  WITH recent AS (SELECT * FROM logs) SELECT * FROM recent",
	}
	for _, q := range allowed {
		if err := checkReadOnly(q); err != nil {
			t.Errorf("checkReadOnly(%q) = %v, want nil", q, err)
		}
	}

	rejected := []string{
		"",
		"DROP VIEW logs",
		"INSERT INTO logs VALUES (1)",
		"SELECT 1; DROP VIEW logs",
		"PRAGMA database_list",
	}
	for _, q := range rejected {
		if err := checkReadOnly(q); err == nil {
			t.Errorf("checkReadOnly(%q) = nil, want error", q)
		}
	}
}
