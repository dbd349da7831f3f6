// Package cancel реализует HTTP-обработчик отмены подписки.
//
// Возврат считается за оставшиеся дни; с него удерживается налог,
// кроме случая, когда движок приостановлен. Оба платежа ограничены
// остатком резерва, поэтому в ответе указаны фактические суммы.
package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// Handler управляет HTTP-запросами на отмену подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс движка для отмены подписки.
type Service interface {
	Cancel(ctx context.Context, account string) (models.Settlement, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Деактивирует подписку аккаунта и возвращает фактически выплаченный возврат и удержанный налог.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response "Подписка отменена"
// @Failure 401 {object} response.ErrorResponse "Аккаунт не указан"
// @Failure 404 {object} response.ErrorResponse "Активная подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
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

	settlement, err := h.service.Cancel(r.Context(), account)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotSubscriber):
			log.Error("no active subscription", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to cancel subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel subscription"))
		}
		return
	}

	log.Info("subscription cancelled",
		slog.String("account", account),
		slog.Uint64("refund_paid", settlement.RefundPaid),
		slog.Uint64("tax_paid", settlement.TaxPaid),
	)
	render.JSON(w, r, response.OKWithData(settlement))
}
