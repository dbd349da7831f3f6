// Package process реализует HTTP-обработчик запуска обработки батча.
//
// Каждый батч обрабатывается не более одного раза за батч-день;
// повторные и преждевременные запуски отвергаются соответствующими
// статусами, чтобы внешний драйвер мог дёргать все батчи вслепую.
package process

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler управляет HTTP-запросами на обработку батча подписчиков.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс движка для обработки батча.
type Service interface {
	ProcessBatch(ctx context.Context, batchIndex uint64) (models.BatchResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Обработать батч
// @Description Запускает обработку батча с индексом из URL. Батч обрабатывается не более одного раза за батч-день.
// @Tags Batches
// @Produce  json
// @Param index path int true "Индекс батча"
// @Success 200 {object} response.Response "Результат обработки"
// @Failure 400 {object} response.ErrorResponse "Некорректный индекс или индекс вне диапазона"
// @Failure 409 {object} response.ErrorResponse "Батч уже обработан"
// @Failure 425 {object} response.ErrorResponse "Новый батч-день ещё не настал"
// @Failure 503 {object} response.ErrorResponse "Движок приостановлен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /batches/{index}/process [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.batch.process"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	batchIndex, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		log.Error("failed to decode batch index from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid batch index"))
		return
	}

	result, err := h.service.ProcessBatch(r.Context(), batchIndex)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrBatchOutOfRange):
			log.Error("batch index out of range", sl.Err(err), slog.Uint64("batch_index", batchIndex))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, engine.ErrBatchAlreadyProcessed):
			log.Info("batch already processed", slog.Uint64("batch_index", batchIndex))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, engine.ErrDayTooSoon):
			log.Info("batch day has not arrived yet", slog.Uint64("batch_index", batchIndex))
			w.WriteHeader(http.StatusTooEarly)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, engine.ErrPaused):
			log.Info("engine is paused")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to process batch", sl.Err(err), slog.Uint64("batch_index", batchIndex))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not process batch"))
		}
		return
	}

	log.Info("batch processed",
		slog.Uint64("batch_index", result.BatchIndex),
		slog.Int("processed", result.ProcessedCount),
		slog.Int("failed", result.FailedCount),
		slog.Bool("day_advanced", result.DayAdvanced),
	)
	render.JSON(w, r, response.OKWithData(result))
}
