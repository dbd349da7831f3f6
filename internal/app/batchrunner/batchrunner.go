// Package batchrunner собирает приложение-драйвер батчей.
package batchrunner

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/config"
	runnerservice "github.com/magabrotheeeer/ticket-subscription-engine/internal/services/batchrunner"
)

// App приложение-драйвер: по таймеру дёргает API движка.
type App struct {
	runner *runnerservice.Runner
	logger *slog.Logger
}

// New создает приложение из конфигурации.
func New(cfg *config.Config, logger *slog.Logger) *App {
	client := runnerservice.NewClient(cfg.EngineAPIURL, cfg.TimeoutHTTP)
	runner := runnerservice.NewRunner(client, cfg.RunnerInterval, logger)

	return &App{
		runner: runner,
		logger: logger,
	}
}

// Run крутит цикл драйвера до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("batch runner starting")
	a.runner.Run(ctx)
	a.logger.Info("batch runner shutting down gracefully")
	return nil
}
