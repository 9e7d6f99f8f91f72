package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/disha-labs/insight/pkg/config"
	"github.com/disha-labs/insight/pkg/dashboard"
	"github.com/disha-labs/insight/pkg/logging"
	"github.com/disha-labs/insight/pkg/retention"
	"github.com/disha-labs/insight/pkg/server"
	"github.com/disha-labs/insight/pkg/service"
	"github.com/disha-labs/insight/pkg/storage"
	"github.com/disha-labs/insight/pkg/storage/badgerstore"
	"github.com/disha-labs/insight/pkg/storage/partition"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging, nil)
	log.Info().Str("backend", cfg.Storage.Backend).Str("dir", cfg.Storage.Dir).Msg("starting insight analytics server")

	// Storage init failure is fatal: the engine cannot degrade without
	// somewhere to put records.
	var store storage.Store
	switch cfg.Storage.Backend {
	case "badger":
		store, err = badgerstore.New(badgerstore.Config{
			Path:        cfg.Storage.Dir,
			MaxMemoryMB: cfg.Storage.MaxMemoryMB,
		})
	default:
		store, err = partition.New(partition.Config{
			Dir:    cfg.Storage.Dir,
			Logger: log,
		})
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	hub := dashboard.NewHub(log)
	svc := service.New(store, log, service.Options{Hub: hub})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runRetention(ctx, retention.New(store, log), cfg.Retention, log)
	}()

	handler := server.NewHandler(svc, log)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler, hub),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}

	// Drain in-flight background collects before closing the store.
	svc.Flush()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("background tasks stopped")
	case <-time.After(5 * time.Second):
		log.Warn().Msg("background tasks did not stop in time")
	}

	log.Info().Msg("insight server exited")
}

// runRetention runs the cleanup job once at startup and then on the
// configured interval.
func runRetention(ctx context.Context, mgr *retention.Manager, cfg config.RetentionConfig, log zerolog.Logger) {
	run := func() {
		start := time.Now()
		removed, err := mgr.Cleanup(ctx, cfg.Days)
		if err != nil {
			log.Error().Err(err).Msg("retention cleanup failed")
			return
		}
		log.Info().Int("removed", removed).Dur("took", time.Since(start)).Msg("retention cleanup finished")
	}

	run()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
