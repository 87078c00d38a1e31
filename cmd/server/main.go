package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sipas/persuratan/internal/app"
	"github.com/sipas/persuratan/internal/config"
	"github.com/sipas/persuratan/internal/errorreporting"
	"github.com/sipas/persuratan/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.Logging)

	if err := errorreporting.Init(cfg.Sentry); err != nil {
		logger.Warn("Sentry disabled", logging.WithField("error", err.Error()))
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", logging.WithField("error", err.Error()))
		errorreporting.CaptureError(err, map[string]string{"stage": "init"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("HTTP server error", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
}
