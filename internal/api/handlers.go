// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hivelog/internal/query"
)

// Store is the query surface the handlers need. Satisfied by
// *query.Engine.
type Store interface {
	Logs(ctx context.Context, f query.Filter) ([]query.Entry, error)
	Sources(ctx context.Context, date string) ([]query.SourceStat, error)
	Raw(ctx context.Context, sql string) (*query.RawResult, error)
}

// Handlers holds the HTTP handlers for the query API.
type Handlers struct {
	store   Store
	tail    *Tailer // nil when live tail is disabled
	started time.Time
}

// NewHandlers creates the handler set. tail may be nil.
func NewHandlers(store Store, tail *Tailer) *Handlers {
	return &Handlers{store: store, tail: tail, started: time.Now()}
}

// Logs handles GET /api/v1/logs.
//
// Query parameters: minutes, date (YYYY-MM-DD), source, level,
// keyword, limit. When date is set minutes is ignored.
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	f := query.Filter{
		Date:    r.URL.Query().Get("date"),
		Source:  r.URL.Query().Get("source"),
		Level:   r.URL.Query().Get("level"),
		Keyword: r.URL.Query().Get("keyword"),
	}
	var err error
	if f.Minutes, err = intParam(r, "minutes"); err != nil {
		rw.BadRequest("minutes must be a positive integer")
		return
	}
	if f.Limit, err = intParam(r, "limit"); err != nil {
		rw.BadRequest("limit must be a positive integer")
		return
	}

	entries, err := h.store.Logs(r.Context(), f)
	if err != nil {
		if isBadInput(err) {
			rw.BadRequest(err.Error())
			return
		}
		rw.QueryFailed(err)
		return
	}
	rw.SuccessWithCount(entries, len(entries))
}

// Sources handles GET /api/v1/sources. The optional date parameter
// restricts the listing to one partition day.
func (h *Handlers) Sources(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stats, err := h.store.Sources(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		if isBadInput(err) {
			rw.BadRequest(err.Error())
			return
		}
		rw.QueryFailed(err)
		return
	}
	rw.SuccessWithCount(stats, len(stats))
}

// rawQueryRequest is the POST /api/v1/query body.
type rawQueryRequest struct {
	SQL string `json:"sql"`
}

// Query handles POST /api/v1/query: ad-hoc read-only SQL against the
// logs view.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req rawQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("request body must be JSON with a sql field")
		return
	}
	if req.SQL == "" {
		rw.BadRequest("sql field is required")
		return
	}

	res, err := h.store.Raw(r.Context(), req.SQL)
	if err != nil {
		if errors.Is(err, query.ErrNotReadOnly) {
			rw.QueryRejected(err.Error())
			return
		}
		rw.QueryFailed(err)
		return
	}
	rw.SuccessWithCount(res, res.Count)
}

// Tail handles GET /api/v1/tail, upgrading to a websocket that streams
// newly appended log lines.
func (h *Handlers) Tail(w http.ResponseWriter, r *http.Request) {
	if h.tail == nil {
		NewResponseWriter(w, r).ServiceUnavailable("live tail is disabled")
		return
	}
	h.tail.HandleWS(w, r)
}

// Health handles GET /api/v1/health: overall status summary.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	queryOK := true
	if _, err := h.store.Sources(r.Context(), ""); err != nil {
		queryOK = false
	}
	status := "healthy"
	if !queryOK {
		status = "degraded"
	}
	rw.Success(map[string]interface{}{
		"status":         status,
		"query_engine":   queryOK,
		"tail_enabled":   h.tail != nil,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// HealthLive handles GET /api/v1/health/live: process is up.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready: the engine can serve
// queries.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, err := h.store.Sources(r.Context(), ""); err != nil {
		rw.ServiceUnavailable("query engine not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// intParam parses an optional positive integer query parameter; absent
// means zero.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

// isBadInput distinguishes caller mistakes (bad date format) from
// engine failures.
func isBadInput(err error) bool {
	return errors.Is(err, query.ErrInvalidFilter)
}
