// Package engineapp предоставляет маршруты основного сервиса движка.
package engineapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	admincashback "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/admin/cashback"
	adminfund "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/admin/fund"
	adminlogin "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/admin/login"
	adminpause "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/admin/pause"
	adminreferrer "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/admin/referrer"
	batchcount "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/batch/count"
	batchprocess "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/batch/process"
	batchstatus "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/batch/status"
	eventslist "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/events/list"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/health"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/purchase/purchasenow"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/active"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/cancel"
	subcount "github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/count"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/cost"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/upgrade"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/handlers/subscription/upgradecost"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/ticket-subscription-engine/internal/services/auth"
	queryservice "github.com/magabrotheeeer/ticket-subscription-engine/internal/services/query"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты движка подписок.
func RegisterRoutes(r chi.Router, logger *slog.Logger, eng *engine.Engine,
	queryService *queryservice.Service, authService *authservice.Service,
	jwtMaker jwt.Maker, db *repository.Storage) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	pauseHandler := adminpause.New(logger, eng)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, db).ServeHTTP)
		r.Post("/admin/login", adminlogin.New(logger, authService).ServeHTTP)
		r.Post("/subscriptions/cost", cost.New(logger, eng).ServeHTTP)
		r.Get("/subscribers/count", subcount.New(logger, queryService).ServeHTTP)
		r.Get("/batches/count", batchcount.New(logger, queryService).ServeHTTP)
		r.Get("/batches/status", batchstatus.New(logger, queryService).ServeHTTP)
		r.Post("/batches/{index}/process", batchprocess.New(logger, eng).ServeHTTP)
		r.Get("/events", eventslist.New(logger, queryService).ServeHTTP)
		r.Get("/events/{account}", eventslist.New(logger, queryService).ServeHTTP)

		// Операции подписчика, аккаунт берётся из заголовка X-Account
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AccountMiddleware(logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscriptions", create.New(logger, eng).ServeHTTP)
			r.Post("/subscriptions/upgrade", upgrade.New(logger, eng).ServeHTTP)
			r.Post("/subscriptions/upgrade/cost", upgradecost.New(logger, eng).ServeHTTP)
			r.Post("/subscriptions/cancel", cancel.New(logger, eng).ServeHTTP)
			r.Get("/subscriptions/me", read.New(logger, queryService).ServeHTTP)
			r.Get("/subscriptions/active", active.New(logger, queryService).ServeHTTP)
			r.Post("/purchase", purchasenow.New(logger, eng).ServeHTTP)
		})

		// Административные операции, защищены JWT с ролью admin
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, middlewarectx.RoleAdmin, logger))
			r.Put("/admin/cashback", admincashback.New(logger, eng).ServeHTTP)
			r.Put("/admin/referrer", adminreferrer.New(logger, eng).ServeHTTP)
			r.Post("/admin/fund", adminfund.New(logger, eng).ServeHTTP)
			r.Post("/admin/pause", pauseHandler.Pause)
			r.Post("/admin/unpause", pauseHandler.Unpause)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
