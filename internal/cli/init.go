// Package cli provides common initialization shared by cmd/moodcal,
// cmd/moodcal-worker and cmd/moodctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moodcal/internal/backend"
	"moodcal/internal/config"
	"moodcal/internal/export"
	applog "moodcal/internal/log"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: applog.ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the configured store and optional publisher.
func OpenBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// ExportTargets builds the export targets enabled in cfg.
func ExportTargets(ctx context.Context, cfg *config.Config) ([]export.Target, error) {
	var targets []export.Target
	if cfg.ExportCSVPath != "" {
		targets = append(targets, export.CSVFile{Path: cfg.ExportCSVPath})
	}
	if cfg.SheetsEnabled() {
		svc, err := export.NewSheetsService(ctx, SheetsCredentials(cfg))
		if err != nil {
			return nil, fmt.Errorf("sheets export: %w", err)
		}
		target, err := export.NewSheetsTarget(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			return nil, fmt.Errorf("sheets export: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// SheetsCredentials collects the Google credentials configured in cfg.
func SheetsCredentials(cfg *config.Config) export.Credentials {
	return export.Credentials{
		JSON:            cfg.GoogleServiceAccountJSON,
		File:            cfg.GoogleServiceAccountFile,
		OAuthClientJSON: cfg.GoogleOAuthClientJSON,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			applog.FieldOperation, applog.OpShutdown,
			"signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown)
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
