// Package upgrade реализует HTTP-обработчик апгрейда подписки.
//
// Handler принимает JSON-запрос с новым тарифом, валидирует его,
// извлекает токен-аккаунт из контекста и вызывает движок. Апгрейд
// объединяет остаток старой подписки с новым тарифом, доплата
// берётся только за прирост ценности.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler управляет HTTP-запросами на апгрейд подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс движка для апгрейда подписки.
type Service interface {
	Upgrade(ctx context.Context, account string, req models.DummyUpgrade) (uint64, error)
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
// @Summary Апгрейд подписки
// @Description Объединяет действующую подписку с новым тарифом. Возвращает доплату.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummyUpgrade true "Новый тариф"
// @Success 200 {object} response.Response "Апгрейд выполнен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Аккаунт не указан"
// @Failure 404 {object} response.ErrorResponse "Активная подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Движок приостановлен или понижение тарифа"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/upgrade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.upgrade"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyUpgrade
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

	account, ok := r.Context().Value(middlewarectx.Account).(string)
	if !ok || account == "" {
		log.Error("account not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	cost, err := h.service.Upgrade(r.Context(), account, req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotSubscriber):
			log.Error("no active subscription", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, engine.ErrPaused), errors.Is(err, engine.ErrDowngrade):
			log.Error("upgrade rejected", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, engine.ErrCostOverflow):
			log.Error("invalid upgrade parameters", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to upgrade subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not upgrade subscription"))
		}
		return
	}

	log.Info("subscription upgraded", slog.String("account", account), slog.Uint64("cost", cost))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"cost": cost,
	}))
}
