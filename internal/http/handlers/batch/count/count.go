// Package count реализует HTTP-обработчик подсчёта батчей.
package count

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
)

// Handler обрабатывает запросы числа батчей текущего реестра.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс подсчёта батчей.
type Service interface {
	NumberOfBatches() uint64
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Число батчей
// @Description Возвращает число батчей, на которые разбит текущий реестр подписчиков.
// @Tags Batches
// @Produce  json
// @Success 200 {object} response.Response "Число батчей"
// @Router /batches/count [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.batch.count"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	n := h.service.NumberOfBatches()
	log.Info("number of batches requested", slog.Uint64("count", n))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"number_of_batches": n,
	}))
}
