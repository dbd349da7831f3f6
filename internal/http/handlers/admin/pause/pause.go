// Package pause реализует HTTP-обработчики приостановки и возобновления движка.
//
// Пауза останавливает батч-обработку и новые операции; отмена подписки
// во время паузы проходит без удержания налога.
package pause

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
)

// Service описывает интерфейс движка для паузы и возобновления.
type Service interface {
	Pause()
	Unpause()
}

// Handler управляет HTTP-запросами паузы и возобновления движка.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Pause godoc
// @Summary Приостановить движок
// @Description Переводит движок в аварийный режим: батчи и новые операции отклоняются.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.Response "Движок приостановлен"
// @Router /admin/pause [post]
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.pause"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.service.Pause()
	log.Info("engine paused")
	render.JSON(w, r, response.OKWithData(map[string]any{"paused": true}))
}

// Unpause godoc
// @Summary Возобновить движок
// @Description Выводит движок из аварийного режима.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.Response "Движок возобновлён"
// @Router /admin/unpause [post]
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.unpause"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.service.Unpause()
	log.Info("engine unpaused")
	render.JSON(w, r, response.OKWithData(map[string]any{"paused": false}))
}
