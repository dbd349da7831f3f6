// Package status реализует HTTP-обработчик состояния батч-дня.
package status

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler обрабатывает запросы состояния батч-дня.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения состояния батч-дня.
type Service interface {
	BatchStatus() models.BatchDayState
	NumberOfBatches() uint64
	IsPaused() bool
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние батч-дня
// @Description Возвращает текущий батч-день, флаги обработанных батчей и признак паузы.
// @Tags Batches
// @Produce  json
// @Success 200 {object} response.Response "Состояние батч-дня"
// @Router /batches/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.batch.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	state := h.service.BatchStatus()
	log.Info("batch status requested", slog.Uint64("current_batch_day", state.CurrentBatchDay))

	render.JSON(w, r, response.OKWithData(map[string]any{
		"current_batch_day":    state.CurrentBatchDay,
		"last_batch_timestamp": state.LastBatchTimestamp,
		"batch_processed":      state.BatchProcessed,
		"number_of_batches":    h.service.NumberOfBatches(),
		"paused":               h.service.IsPaused(),
	}))
}
