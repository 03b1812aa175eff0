package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/users"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	logger.Info("Starting fintrack server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)

	res := cli.InitBackend(context.Background(), logger, cfg)

	suggester, err := cli.LoadClassifier(logger, cfg)
	if err != nil {
		logger.Error("Failed to load classifier rules", log.FieldError, err)
		os.Exit(1)
	}
	finance, summaries := cli.NewFinanceService(logger, cfg, res, suggester)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(cfg.SummaryCacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Finance:            finance,
		Users:              users.NewService(res.Store),
		Sessions:           session.NewManager(cfg.JWTSecret, cfg.SessionTTL),
		Store:              res.Store,
		SummaryCache:       summaries,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := finance.CloseAll(ctx); err != nil {
			logger.Error("Failed to flush sessions", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
