// Package main содержит точку входа драйвера батчей.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/app/batchrunner"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting batch-runner", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := batchrunner.New(cfg, logger)
	if err := app.Run(ctx); err != nil {
		logger.Error("batch runner stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
