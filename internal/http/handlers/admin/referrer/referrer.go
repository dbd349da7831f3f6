// Package referrer реализует HTTP-обработчик смены реферера движка.
package referrer

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

// Handler управляет HTTP-запросами на смену реферера.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс движка для смены реферера.
type Service interface {
	SetReferrer(account string) error
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
// @Summary Сменить реферера
// @Description Устанавливает токен-аккаунт реферера, передаваемый внешнему лотерейному сервису при покупках.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummyReferrer true "Аккаунт реферера"
// @Success 200 {object} response.Response "Реферер обновлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или пустой аккаунт"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/referrer [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.referrer"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyReferrer
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

	if err := h.service.SetReferrer(req.Account); err != nil {
		if errors.Is(err, engine.ErrEmptyReferrer) {
			log.Error("empty referrer account", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to set referrer", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not set referrer"))
		return
	}

	log.Info("referrer updated", slog.String("account", req.Account))
	render.JSON(w, r, response.OKWithData(nil))
}
