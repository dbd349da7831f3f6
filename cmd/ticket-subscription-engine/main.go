// Package main содержит точку входа основного сервиса движка подписок.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/app/engineapp"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/config"
)

// @title Ticket Subscription Engine API
// @version 1.0
// @description Движок подписок на лотерейные билеты: подписки, батч-обработка, разовые покупки.
// @BasePath /api/v1
func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting ticket-subscription-engine", slog.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := engineapp.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize engine app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("engine app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
