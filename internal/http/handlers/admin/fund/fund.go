// Package fund реализует HTTP-обработчик пополнения резерва движка.
package fund

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler управляет HTTP-запросами на пополнение резерва.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс движка для пополнения резерва.
type Service interface {
	Fund(ctx context.Context, from string, amount uint64) error
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
// @Summary Пополнить резерв
// @Description Переводит средства с указанного аккаунта в резерв движка.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummyFund true "Источник и сумма"
// @Success 200 {object} response.Response "Резерв пополнен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Перевод не прошёл"
// @Router /admin/fund [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.fund"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyFund
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

	if err := h.service.Fund(r.Context(), req.Account, req.Amount); err != nil {
		log.Error("failed to fund reserve", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not fund reserve"))
		return
	}

	log.Info("reserve funded", slog.String("from", req.Account), slog.Uint64("amount", req.Amount))
	render.JSON(w, r, response.OKWithData(nil))
}
