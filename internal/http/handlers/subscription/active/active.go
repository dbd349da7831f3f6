// Package active реализует HTTP-обработчик проверки активности подписки.
package active

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
)

// Handler обрабатывает запросы на проверку активности подписки аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс проверки активности подписки.
type Service interface {
	HasActiveSubscription(account string) bool
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить активность подписки
// @Description Сообщает, есть ли у аккаунта из заголовка X-Account активная подписка с остатком дней.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response "Признак активности"
// @Failure 401 {object} response.ErrorResponse "Аккаунт не указан"
// @Router /subscriptions/active [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.active"
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

	render.JSON(w, r, response.OKWithData(map[string]any{
		"active": h.service.HasActiveSubscription(account),
	}))
}
