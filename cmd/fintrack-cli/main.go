package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/cli"
	"fintrack/internal/console"
	"fintrack/internal/log"
)

func main() {
	user := flag.String("user", defaultUser(), "ledger owner")
	flag.Parse()

	cfg, logger := cli.Bootstrap(log.ComponentConsole)
	// keep the menu readable: only warnings and errors reach the terminal
	if cfg.LogLevel == "INFO" {
		cfg.LogLevel = "WARN"
		logger = cli.SetupLogger(cfg, log.ComponentConsole)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	suggester, err := cli.LoadClassifier(logger, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	finance, _ := cli.NewFinanceService(logger, cfg, res, suggester)

	c := console.New(os.Stdin, os.Stdout, finance, *user, console.WithLogger(logger))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
