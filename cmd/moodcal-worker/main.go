package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moodcal/internal/amqp"
	"moodcal/internal/cli"
	"moodcal/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting moodcal-worker")

	if !cfg.ExportEnabled() {
		logger.Error("No export target configured (set EXPORT_CSV_PATH or GOOGLE_SPREADSHEET_ID)")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Worker is using its own memory store; exports will not see writes made by the server")
	}

	res, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	targets, err := cli.ExportTargets(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize export targets", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	w := worker.NewExportWorker(res.Store, targets...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	// Run exports once right away, catching up on writes made while the
	// worker was down.
	g.Go(func() error {
		return w.Run(gctx, cfg.ExportInterval)
	})
	if client, ok := res.Publisher.(*amqp.Client); ok {
		g.Go(func() error {
			return client.Consume(gctx, w.HandleChangeMessage)
		})
	} else {
		logger.Info("AMQP not available, relying on periodic export only", "interval", cfg.ExportInterval)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
