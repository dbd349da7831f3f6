// Package cashback реализует HTTP-обработчик изменения ставок кэшбэка.
package cashback

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler управляет HTTP-запросами на изменение ставок кэшбэка.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс движка для изменения кэшбэка.
type Service interface {
	SetCashback(immediateBps, subscriptionBps uint64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменить ставки кэшбэка
// @Description Устанавливает кэшбэк разовых покупок и подписок в базисных пунктах. Ставка ограничена сверху.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummyCashback true "Новые ставки"
// @Success 200 {object} response.Response "Ставки обновлены"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ставка выше предела"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/cashback [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.cashback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCashback
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.SetCashback(req.ImmediateBps, req.SubscriptionBps); err != nil {
		if errors.Is(err, engine.ErrCashbackTooHigh) {
			log.Error("cashback rate too high", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to set cashback", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not set cashback"))
		return
	}

	log.Info("cashback rates updated",
		slog.Uint64("immediate_bps", req.ImmediateBps),
		slog.Uint64("subscription_bps", req.SubscriptionBps),
	)
	render.JSON(w, r, response.OKWithData(nil))
}
