// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/fintrack, cmd/fintrack-cli and cmd/alert-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/classifier"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.ConfigFromEnv(cfg.LogLevel, cfg.LogFormat)
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap runs the shared startup sequence: .env, configuration, logger.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	boot := log.New(log.Config{Output: os.Stderr, Component: component})
	cfg := LoadAndValidateConfig(boot)
	return cfg, SetupLogger(cfg, component)
}

// InitBackend opens the configured store and optional AMQP client.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// LoadClassifier builds the category classifier, reading CLASSIFIER_RULES_FILE
// when set.
func LoadClassifier(logger *log.Logger, cfg *config.Config) (*classifier.Classifier, error) {
	rules, err := classifier.LoadRules(cfg.ClassifierRulesFile)
	if err != nil {
		return nil, err
	}
	if cfg.ClassifierRulesFile != "" {
		logger.Info("Loaded classifier rules", "path", cfg.ClassifierRulesFile, "rules", len(rules))
	}
	return classifier.New(rules, core.DefaultCategory), nil
}

// NewFinanceService wires the finance service to the opened backend. The
// returned summary cache should be registered with a cache.Manager.
func NewFinanceService(logger *log.Logger, cfg *config.Config, res *backend.BackendResult, suggester *classifier.Classifier) (*services.FinanceService, *cache.LRUCache[core.Summary]) {
	summaries := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	opts := []services.Option{
		services.WithSummaryCache(summaries),
		services.WithLogger(logger),
	}
	if res.Alerts != nil {
		opts = append(opts, services.WithPublisher(res.Alerts))
	}
	return services.NewFinanceService(res.Store, suggester, opts...), summaries
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
