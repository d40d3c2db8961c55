package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"moodcal/internal/amqp"
	"moodcal/internal/cache"
	"moodcal/internal/calendar"
	"moodcal/internal/cli"
	"moodcal/internal/cycle"
	apphttp "moodcal/internal/http"
	applog "moodcal/internal/log"
	"moodcal/internal/metrics"
	"moodcal/internal/services"
	"moodcal/internal/stats"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	res, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	catalog, err := cycle.LoadCatalog(cfg.CyclePresetsFile)
	if err != nil {
		logger.Error("Failed to load cycle presets", "error", err, "path", cfg.CyclePresetsFile)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.NewPrometheusObserver("moodcal", reg)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	appLogger := applog.New(applog.ComponentApp, logger.Handler())
	notifier := services.NewNotifier(res.Publisher, observer)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     res.Store,
		Moods:     services.NewMoodService(res.Store, notifier),
		Cycles:    services.NewCycleService(res.Store, catalog, notifier),
		Stats:     stats.NewService(res.Store),
		Projector: calendar.NewProjector(res.Store),
		YearCache: cache.NewLRUCache[calendar.Projection](cfg.CacheSize, cfg.CacheTTL),
		Observer:  observer,
		Gatherer:  reg,
		Logger:    appLogger.WithComponent(applog.ComponentHTTP),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Writes made by moodctl or another server only reach this cache
	// through the broker.
	if client, ok := res.Publisher.(*amqp.Client); ok {
		go func() {
			if err := client.Subscribe(ctx, srv.HandleChangeMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change subscription stopped", "error", err)
			}
		}()
	}

	appLogger.Info("Starting moodcal server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil,
		"presets", len(catalog.Names()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	appLogger.Info("Server stopped gracefully")
}
