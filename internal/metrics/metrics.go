// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

// Package metrics provides Prometheus instrumentation for the emitter
// hot path, the DuckDB query surface, the retention sweeper and the
// HTTP API. Metrics are exposed by hivelogd at /metrics; library users
// get them for free whenever their host process serves the default
// registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Emitter metrics

	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivelog_records_written_total",
			Help: "Total log records appended to sink files",
		},
		[]string{"source", "level"},
	)

	WriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivelog_write_errors_total",
			Help: "Log lines dropped due to sink I/O failures",
		},
		[]string{"source", "stage"}, // "open", "write", "close"
	)

	SinkRollovers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivelog_sink_rollovers_total",
			Help: "Date-boundary file rollovers per source",
		},
		[]string{"source"},
	)

	BytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivelog_sink_bytes_written_total",
			Help: "Bytes appended to sink files",
		},
		[]string{"source"},
	)

	// Query engine metrics

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hivelog_query_duration_seconds",
			Help:    "Duration of DuckDB queries against the log view",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "logs", "sources", "raw"
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivelog_query_errors_total",
			Help: "Failed DuckDB queries",
		},
		[]string{"operation"},
	)

	// Retention metrics

	RetentionSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivelog_retention_sweeps_total",
			Help: "Completed retention sweeps",
		},
	)

	RetentionPartitionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivelog_retention_partitions_deleted_total",
			Help: "Date partitions removed by the retention sweeper",
		},
	)

	RetentionLastSweep = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hivelog_retention_last_sweep_timestamp_seconds",
			Help: "Unix time of the last completed retention sweep",
		},
	)

	// HTTP API metrics

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivelog_api_requests_total",
			Help: "HTTP requests served by the query API",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hivelog_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	TailClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hivelog_tail_clients",
			Help: "Connected live-tail websocket clients",
		},
	)

	TailLinesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivelog_tail_lines_sent_total",
			Help: "Log lines fanned out to live-tail clients",
		},
	)
)

// RecordWrite counts one appended record and its size.
func RecordWrite(source, level string, bytes int) {
	RecordsWritten.WithLabelValues(source, level).Inc()
	BytesWritten.WithLabelValues(source).Add(float64(bytes))
}

// RecordWriteError counts a dropped line at the given sink stage.
func RecordWriteError(source, stage string) {
	WriteErrors.WithLabelValues(source, stage).Inc()
}

// RecordRollover counts a date-boundary rollover.
func RecordRollover(source string) {
	SinkRollovers.WithLabelValues(source).Inc()
}

// ObserveQuery records a query's duration, or its failure.
func ObserveQuery(operation string, start time.Time, err error) {
	if err != nil {
		QueryErrors.WithLabelValues(operation).Inc()
		return
	}
	QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordSweep records a completed retention sweep.
func RecordSweep(partitionsDeleted int) {
	RetentionSweeps.Inc()
	RetentionPartitionsDeleted.Add(float64(partitionsDeleted))
	RetentionLastSweep.SetToCurrentTime()
}

// ObserveAPIRequest records one served HTTP request.
func ObserveAPIRequest(method, endpoint string, status int, start time.Time) {
	APIRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
}
