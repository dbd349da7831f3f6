// Package main содержит точку входа рекордера событий движка.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/app/recorder"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting event-recorder", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := recorder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize recorder app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("event recorder stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
