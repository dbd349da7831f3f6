// Package recorder собирает приложение-рекордер событий движка.
package recorder

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/config"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/migrations"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/rabbitmq"
	recorderservice "github.com/magabrotheeeer/ticket-subscription-engine/internal/services/recorder"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/storage/repository"
)

// App приложение-рекордер: читает события из очереди и пишет их в журнал.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	service *recorderservice.Service
	db      *repository.Storage
	logger  *slog.Logger
}

// New создает приложение из конфигурации.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEngineQueues())
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	service := recorderservice.New(db, logger)

	return &App{
		conn:    conn,
		ch:      ch,
		service: service,
		db:      db,
		logger:  logger,
	}, nil
}

// Run запускает потребителя очереди и ждёт отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, "engine-events.recorded", a.service.HandleMessage)
	if err != nil {
		a.logger.Error("failed to start engine-events consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("event recorder shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	a.db.DB.Close() //nolint:errcheck

	return nil
}
