package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HusainCode/pico-firmware/internal/app"
	"github.com/HusainCode/pico-firmware/internal/config"
	"github.com/HusainCode/pico-firmware/internal/logging"
)

var version = "dev"
var appName = "pico-collector"

func main() {
	cfg, err := config.LoadCollectorFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Common, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = app.RunCollector(ctx, cfg, logger)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		_ = closer.Close()
		os.Exit(1)
	}

	slog.Info("shutting down")
	_ = closer.Close()
}
