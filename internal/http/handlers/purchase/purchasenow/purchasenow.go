// Package purchasenow реализует HTTP-обработчик разовой покупки билетов.
//
// Покупка проходит вне подписочного цикла: средства списываются с
// аккаунта сразу, кэшбэк выплачивается из резерва в пределах его остатка.
package purchasenow

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

// Handler управляет HTTP-запросами на разовую покупку билетов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс движка для разовой покупки.
type Service interface {
	PurchaseNow(ctx context.Context, payer string, amount uint64) (uint64, error)
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
// @Summary Разовая покупка билетов
// @Description Покупает билеты на указанную сумму в пользу аккаунта из заголовка X-Account. Возвращает выплаченный кэшбэк.
// @Tags Purchase
// @Accept  json
// @Produce  json
// @Param request body models.DummyPurchase true "Сумма покупки"
// @Success 200 {object} response.Response "Покупка выполнена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или сумма меньше цены билета"
// @Failure 401 {object} response.ErrorResponse "Аккаунт не указан"
// @Failure 409 {object} response.ErrorResponse "Движок приостановлен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchase [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.purchasenow"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPurchase
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

	cashback, err := h.service.PurchaseNow(r.Context(), account, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrPaused):
			log.Error("purchase rejected", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, engine.ErrAmountTooLow), errors.Is(err, engine.ErrCostOverflow):
			log.Error("invalid purchase amount", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to purchase", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not complete purchase"))
		}
		return
	}

	log.Info("immediate purchase done",
		slog.String("account", account),
		slog.Uint64("amount", req.Amount),
		slog.Uint64("cashback", cashback),
	)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"cashback": cashback,
	}))
}
