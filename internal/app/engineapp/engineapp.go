// Package engineapp собирает основной сервис движка подписок: базу данных,
// кэш, брокер событий, метрики и HTTP-сервер.
package engineapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/cache"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/config"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/metrics"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/migrations"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/ticket-subscription-engine/internal/services/auth"
	queryservice "github.com/magabrotheeeer/ticket-subscription-engine/internal/services/query"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/storage/repository"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/ticketprovider"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/tokenbank"
)

// App основное приложение движка подписок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New строит приложение: применяет миграции, восстанавливает состояние
// движка из базы и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
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

	tickets := ticketprovider.NewClient(cfg.TicketAPIURL, cfg.TicketAPIKey, cfg.TicketTimeout)
	tokens := tokenbank.NewClient(cfg.TokenAPIURL, cfg.TokenAPIKey, cfg.TokenTimeout)
	engineMetrics := metrics.New(prometheus.DefaultRegisterer)

	eng := engine.New(engine.Params{
		BatchSize:               cfg.Engine.BatchSize,
		ProcessingInterval:      cfg.Engine.ProcessingInterval,
		ImmediateCashbackBps:    cfg.Engine.ImmediateCashbackBps,
		SubscriptionCashbackBps: cfg.Engine.SubscriptionCashbackBps,
		CancellationTaxBps:      cfg.Engine.CancellationTaxBps,
		Referrer:                cfg.Engine.Referrer,
		ReserveAccount:          cfg.Engine.ReserveAccount,
		TicketAccount:           cfg.TicketProvider.TicketAccount,
	}, tickets, tokens, db, rabbitmq.NewSink(ch), engineMetrics, logger)

	if err := eng.RestoreState(ctx); err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.New(cfg.AdminUsername, cfg.AdminPasswordHash, jwtMaker)
	queryService := queryservice.New(eng, db, cacheRedis)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, eng, queryService, authService, jwtMaker, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", closeErr))
		}
		a.db.DB.Close() //nolint:errcheck
		return err
	}
}
