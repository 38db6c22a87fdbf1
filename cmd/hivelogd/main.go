// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

// hivelogd serves the query API over a hive-partitioned NDJSON log
// tree and runs the retention sweeper. It never ingests anything:
// emitters append to the tree directly through the hivelog library,
// and the daemon reads the same files in place.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/hivelog"
	"github.com/tomtom215/hivelog/internal/api"
	"github.com/tomtom215/hivelog/internal/config"
	"github.com/tomtom215/hivelog/internal/logging"
	"github.com/tomtom215/hivelog/internal/query"
	"github.com/tomtom215/hivelog/internal/retention"
	"github.com/tomtom215/hivelog/internal/supervisor"
	"github.com/tomtom215/hivelog/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("hivelogd failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	// The daemon logs its own lifecycle into the tree it serves.
	daemonLog, err := hivelog.New(cfg.Logs.Root, "hivelogd",
		hivelog.WithTimezone(cfg.Logs.Timezone))
	if err != nil {
		return err
	}
	defer func() { _ = daemonLog.Close() }()
	daemonLog.Info("hivelogd starting, pid=%d", os.Getpid())

	engine, err := query.Open(query.Options{
		Root:         cfg.Logs.Root,
		Timezone:     cfg.Logs.Timezone,
		MaxMemory:    cfg.Query.MaxMemory,
		Threads:      cfg.Query.Threads,
		DefaultLimit: cfg.Query.DefaultLimit,
		MaxLimit:     cfg.Query.MaxLimit,
	})
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	var tailer *api.Tailer
	if cfg.Tail.Enabled {
		tailer = api.NewTailer(cfg.Logs.Root, cfg.Tail.ClientBuffer)
	}

	handlers := api.NewHandlers(engine, tailer)
	router := api.NewRouter(handlers, api.RouterConfig{
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	if cfg.Retention.Enabled {
		sweeper := retention.New(cfg.Logs.Root, cfg.Location(),
			cfg.Retention.MaxAgeDays, cfg.Retention.SweepInterval,
			engine.InvalidateView)
		tree.AddMaintenanceService(sweeper)
	}
	if tailer != nil {
		tree.AddMaintenanceService(tailer)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", addr).
		Str("root", cfg.Logs.Root).
		Str("timezone", cfg.Logs.Timezone).
		Bool("retention", cfg.Retention.Enabled).
		Bool("tail", cfg.Tail.Enabled).
		Msg("hivelogd ready")
	daemonLog.Info("listening on %s", addr)

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		daemonLog.Error("supervisor stopped: %v", err)
		return err
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service missed shutdown deadline")
		}
	}

	daemonLog.Info("hivelogd stopped")
	return nil
}
