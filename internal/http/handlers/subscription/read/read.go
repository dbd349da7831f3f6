// Package read реализует HTTP-обработчик получения подписки аккаунта.
package read

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler обрабатывает запросы на получение подписки текущего аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения подписки.
type Service interface {
	GetSubscription(account string) (models.Subscription, bool)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить подписку
// @Description Возвращает запись подписки аккаунта из заголовка X-Account.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response "Данные подписки"
// @Failure 401 {object} response.ErrorResponse "Аккаунт не указан"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /subscriptions/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	account, ok := r.Context().Value(middlewarectx.Account).(string)
	if !ok || account == "" {
		log.Error("account not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	sub, found := h.service.GetSubscription(account)
	if !found {
		log.Info("subscription not found", slog.String("account", account))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}

	render.JSON(w, r, response.OKWithData(sub))
}
