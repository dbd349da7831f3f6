// Package count реализует HTTP-обработчик подсчёта подписчиков.
package count

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
)

// Handler обрабатывает запросы на подсчёт подписчиков в реестре.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс подсчёта подписчиков.
type Service interface {
	SubscriberCount() int
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Число подписчиков
// @Description Возвращает размер реестра подписчиков, включая ещё не вычищенные неактивные записи.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response "Число подписчиков"
// @Router /subscribers/count [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.count"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	n := h.service.SubscriberCount()
	log.Info("subscriber count requested", slog.Int("count", n))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"count": n,
	}))
}
