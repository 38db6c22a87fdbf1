// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

// Package query embeds DuckDB over the partitioned NDJSON tree. No
// ingestion pipeline and no index: every query reads the files in
// place through read_ndjson with hive partitioning, so results always
// reflect the tree as it is on disk, including lines appended a
// millisecond ago.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/hivelog/internal/logging"
	"github.com/tomtom215/hivelog/internal/metrics"
)

// viewName is the relation exposed to raw SQL queries.
const viewName = "logs"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Options configures the embedded engine.
type Options struct {
	// Root is the base directory of the date=/source= tree.
	Root string

	// Timezone renders ts_local in query results. Stored timestamps are
	// UTC epoch nanoseconds regardless.
	Timezone string

	MaxMemory    string
	Threads      int // 0 means runtime.NumCPU()
	DefaultLimit int
	MaxLimit     int
}

// Engine wraps an in-memory DuckDB instance whose only table-shaped
// object is a view over the NDJSON tree.
type Engine struct {
	db           *sql.DB
	root         string
	tz           string
	defaultLimit int
	maxLimit     int

	mu        sync.Mutex
	viewReady bool
}

// Open starts an in-memory DuckDB tuned per opts. The logs view is
// created lazily on first query so an empty tree is not an error.
func Open(opts Options) (*Engine, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("query: root directory is required")
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := opts.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	// Auto-install/auto-load are disabled so startup cannot hang on a
	// network fetch; the json extension is loaded explicitly below.
	connStr := fmt.Sprintf(":memory:?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		threads, maxMemory)

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(threads)
	db.SetConnMaxLifetime(0)

	e := &Engine{
		db:           db,
		root:         opts.Root,
		tz:           opts.Timezone,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
	}
	if e.tz == "" {
		e.tz = "UTC"
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = 100
	}
	if e.maxLimit < e.defaultLimit {
		e.maxLimit = e.defaultLimit
	}

	if err := e.loadJSONExtension(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().
		Str("root", e.root).
		Str("timezone", e.tz).
		Int("threads", threads).
		Str("max_memory", maxMemory).
		Msg("Query engine started")
	return e, nil
}

// Close shuts down the embedded database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// loadJSONExtension makes read_ndjson available. Recent duckdb-go
// builds link json statically, so LOAD alone usually succeeds; INSTALL
// is the fallback for builds that ship it as a loadable.
func (e *Engine) loadJSONExtension() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := e.db.ExecContext(ctx, "LOAD json;"); err == nil {
		return nil
	}
	if _, err := e.db.ExecContext(ctx, "INSTALL json;"); err != nil {
		return fmt.Errorf("install json extension: %w", err)
	}
	if _, err := e.db.ExecContext(ctx, "LOAD json;"); err != nil {
		return fmt.Errorf("load json extension: %w", err)
	}
	return nil
}

// ensureView (re)creates the logs view. DuckDB binds read_ndjson at
// view creation, which fails when the glob matches nothing, so the
// caller gets ok=false instead of an error while the tree is empty.
// Once created, every query re-expands the glob and sees new files
// and partitions without any refresh step.
func (e *Engine) ensureView(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	glob := filepath.Join(e.root, "date=*", "source=*", "*.ndjson")
	matches, err := filepath.Glob(glob)
	if err != nil {
		return false, fmt.Errorf("scan log tree: %w", err)
	}
	if len(matches) == 0 {
		e.viewReady = false
		return false, nil
	}
	if e.viewReady {
		return true, nil
	}

	// Hive partitioning is auto-detected rather than forced: the lines
	// already carry a source field, and auto-detection lets the file
	// column win that collision while still surfacing date= from the
	// path as a queryable column.
	stmt := fmt.Sprintf(
		`CREATE OR REPLACE VIEW %s AS
		 SELECT * FROM read_ndjson(%s)`,
		viewName, quoteLiteral(e.root+"/**/*.ndjson"))
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("create logs view: %w", err)
	}
	e.viewReady = true
	logging.Debug().Int("files", len(matches)).Msg("Logs view ready")
	return true, nil
}

// InvalidateView forces the next query to rebuild the view. The
// retention sweeper calls this after deleting partitions so a cached
// view never points at removed directories.
func (e *Engine) InvalidateView() {
	e.mu.Lock()
	e.viewReady = false
	e.mu.Unlock()
}

// Filter selects log entries. Zero values mean "no constraint" except
// Minutes, which defaults to 60 when neither Minutes nor Date is set.
type Filter struct {
	Minutes int
	Date    string
	Source  string
	Level   string
	Keyword string
	Limit   int
}

func (f *Filter) normalize(defaultLimit, maxLimit int) error {
	if f.Date != "" && !dateRe.MatchString(f.Date) {
		return fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidFilter, f.Date)
	}
	if f.Date == "" && f.Minutes <= 0 {
		f.Minutes = 60
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return nil
}

// Entry is one log record as returned by queries: the stored fields
// plus the partition date and a rendering of ts in the configured
// timezone.
type Entry struct {
	TsLocal string `json:"ts_local"`
	Ts      uint64 `json:"ts"`
	Level   string `json:"level"`
	Source  string `json:"source"`
	Pid     int    `json:"pid"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Func    string `json:"func"`
	Msg     string `json:"msg"`
	Date    string `json:"date"`
}

// Logs returns entries matching f, newest first.
func (e *Engine) Logs(ctx context.Context, f Filter) ([]Entry, error) {
	start := time.Now()
	entries, err := e.logs(ctx, f)
	metrics.ObserveQuery("logs", start, err)
	return entries, err
}

func (e *Engine) logs(ctx context.Context, f Filter) ([]Entry, error) {
	if err := f.normalize(e.defaultLimit, e.maxLimit); err != nil {
		return nil, err
	}
	ok, err := e.ensureView(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Entry{}, nil
	}

	wb := NewWhereBuilder()
	if f.Date != "" {
		wb.AddDate(f.Date)
	} else {
		wb.AddWindowMinutes(f.Minutes)
	}
	if f.Source != "" {
		wb.AddSource(f.Source)
	}
	if f.Level != "" {
		wb.AddLevel(f.Level)
	}
	if f.Keyword != "" {
		wb.AddKeyword(f.Keyword)
	}
	where, args := wb.Build()

	// ts is epoch nanoseconds; make_timestamp takes microseconds.
	stmt := fmt.Sprintf(`
		SELECT
			CAST(make_timestamp(CAST(ts AS BIGINT) // 1000) AT TIME ZONE 'UTC' AT TIME ZONE %s AS VARCHAR) AS ts_local,
			CAST(ts AS BIGINT),
			level, source,
			CAST(pid AS BIGINT), file, CAST(line AS BIGINT), func, msg,
			CAST(date AS VARCHAR)
		FROM %s
		WHERE %s
		ORDER BY CAST(ts AS BIGINT) DESC
		LIMIT %d`,
		quoteLiteral(e.tz), viewName, where, f.Limit)

	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			ent       Entry
			ts        int64
			pid, line int64
		)
		if err := rows.Scan(&ent.TsLocal, &ts, &ent.Level, &ent.Source,
			&pid, &ent.File, &line, &ent.Func, &ent.Msg, &ent.Date); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		ent.Ts = uint64(ts)
		ent.Pid = int(pid)
		ent.Line = int(line)
		entries = append(entries, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log rows: %w", err)
	}
	return entries, nil
}

// SourceStat summarizes one source within one date partition.
type SourceStat struct {
	Source   string `json:"source"`
	Date     string `json:"date"`
	Entries  int64  `json:"entries"`
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// Sources returns per-source, per-date counts and time ranges. An
// empty date covers the whole tree.
func (e *Engine) Sources(ctx context.Context, date string) ([]SourceStat, error) {
	start := time.Now()
	stats, err := e.sources(ctx, date)
	metrics.ObserveQuery("sources", start, err)
	return stats, err
}

func (e *Engine) sources(ctx context.Context, date string) ([]SourceStat, error) {
	if date != "" && !dateRe.MatchString(date) {
		return nil, fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidFilter, date)
	}
	ok, err := e.ensureView(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []SourceStat{}, nil
	}

	wb := NewWhereBuilder()
	if date != "" {
		wb.AddDate(date)
	}
	where, args := wb.Build()

	localTs := fmt.Sprintf(
		"make_timestamp(CAST(ts AS BIGINT) // 1000) AT TIME ZONE 'UTC' AT TIME ZONE %s",
		quoteLiteral(e.tz))
	stmt := fmt.Sprintf(`
		SELECT source, CAST(date AS VARCHAR), COUNT(*) AS entries,
			CAST(MIN(%s) AS VARCHAR) AS earliest,
			CAST(MAX(%s) AS VARCHAR) AS latest
		FROM %s
		WHERE %s
		GROUP BY source, date
		ORDER BY date DESC, entries DESC`,
		localTs, localTs, viewName, where)

	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	stats := []SourceStat{}
	for rows.Next() {
		var s SourceStat
		if err := rows.Scan(&s.Source, &s.Date, &s.Entries, &s.Earliest, &s.Latest); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return stats, nil
}

// RawResult carries an ad-hoc query's column names and stringified rows.
type RawResult struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}

// ErrNotReadOnly is returned for raw SQL that is not a single
// SELECT/WITH statement.
var ErrNotReadOnly = fmt.Errorf("only a single SELECT or WITH statement is allowed")

// ErrInvalidFilter is wrapped by filter validation failures so callers
// can map them to 400 responses.
var ErrInvalidFilter = fmt.Errorf("invalid filter")

// Raw executes an ad-hoc read-only query against the logs view. The
// statement must start with SELECT or WITH and may not chain further
// statements; row count is capped at the engine's max limit.
func (e *Engine) Raw(ctx context.Context, sqlText string) (*RawResult, error) {
	start := time.Now()
	res, err := e.raw(ctx, sqlText)
	metrics.ObserveQuery("raw", start, err)
	return res, err
}

func (e *Engine) raw(ctx context.Context, sqlText string) (*RawResult, error) {
	if err := checkReadOnly(sqlText); err != nil {
		return nil, err
	}
	ok, err := e.ensureView(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RawResult{Columns: []string{}, Rows: [][]string{}}, nil
	}

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("raw query columns: %w", err)
	}

	res := &RawResult{Columns: cols, Rows: [][]string{}}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if len(res.Rows) >= e.maxLimit {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan raw row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = renderValue(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw rows: %w", err)
	}
	res.Count = len(res.Rows)
	return res, nil
}

// checkReadOnly enforces the SELECT/WITH-only contract for raw SQL.
func checkReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return ErrNotReadOnly
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ErrNotReadOnly
	}
	// Reject statement chaining; a single trailing semicolon is fine.
	if strings.Contains(strings.TrimSuffix(trimmed, ";"), ";") {
		return ErrNotReadOnly
	}
	return nil
}

// renderValue stringifies a scanned DuckDB value for the raw result
// envelope.
func renderValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// quoteLiteral embeds s as a single-quoted SQL string literal. Used
// only for values that cannot be bound as parameters (glob paths in
// DDL, AT TIME ZONE operands).
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
