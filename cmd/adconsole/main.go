// Package main wires together the operator console service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/api"
	"github.com/ops-vnc/adconsole/internal/backend"
	"github.com/ops-vnc/adconsole/internal/clock/system"
	"github.com/ops-vnc/adconsole/internal/config"
	"github.com/ops-vnc/adconsole/internal/crawlctl"
	"github.com/ops-vnc/adconsole/internal/history"
	"github.com/ops-vnc/adconsole/internal/logging"
	"github.com/ops-vnc/adconsole/internal/metrics"
	"github.com/ops-vnc/adconsole/internal/registry"
	"github.com/ops-vnc/adconsole/internal/scheduler"
	"github.com/ops-vnc/adconsole/internal/searchhist"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.BackendTimeout(),
	}, logger.Named("backend"))

	searches, err := searchhist.New(searchhist.Config{
		BaseDir: cfg.SearchHistory.Dir,
		Depth:   cfg.SearchHistory.Depth,
	})
	if err != nil {
		logger.Fatal("search history store init failed", zap.Error(err))
	}

	clock := system.New()
	controller := crawlctl.NewController(client, clock, logger.Named("crawlctl"))
	poller := crawlctl.NewPoller(client, controller, cfg.PollInterval(), logger.Named("poller"))

	view := history.NewView(cfg.History.Cap, cfg.History.PerPage, clock)
	keywords := registry.NewKeywords(client)
	profiles := registry.NewProfiles(client)
	sched := scheduler.New(client, logger.Named("scheduler"))
	sched.Load(ctx)

	// Prime the caches; the backend may not be up yet, so failures here are
	// not fatal.
	if err := keywords.Refresh(ctx); err != nil {
		logger.Warn("initial keyword load failed", zap.Error(err))
	}
	if err := profiles.Refresh(ctx); err != nil {
		logger.Warn("initial profile load failed", zap.Error(err))
	}
	seq := view.NextLoadSeq()
	if records, err := client.FetchAds(ctx); err != nil {
		logger.Warn("initial history load failed", zap.Error(err))
	} else {
		view.ApplyLoad(seq, records)
	}

	apiServer := api.NewServer(controller, view, client, sched, keywords, profiles, searches, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("status poller started")
		poller.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
