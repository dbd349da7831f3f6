// Package list реализует HTTP-обработчик чтения журнала событий движка.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/sl"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// DefaultLimit число событий в ответе, если limit не указан.
const DefaultLimit = 50

// Handler обрабатывает запросы журнала событий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения журнала событий.
type Service interface {
	ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error)
	ListEventsByAccount(ctx context.Context, account string, limit, offset int) ([]*models.Event, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Журнал событий
// @Description Возвращает события движка, сначала свежие. Если в URL указан аккаунт, фильтрует по нему.
// @Tags Events
// @Produce  json
// @Param account path string false "Токен-аккаунт"
// @Param limit query int false "Максимум событий (по умолчанию 50)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Список событий"
// @Failure 500 {object} response.ErrorResponse "Ошибка чтения журнала"
// @Router /events [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.events.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	var (
		events []*models.Event
		err    error
	)
	if account := chi.URLParam(r, "account"); account != "" {
		events, err = h.service.ListEventsByAccount(r.Context(), account, limit, offset)
	} else {
		events, err = h.service.ListEvents(r.Context(), limit, offset)
	}
	if err != nil {
		log.Error("failed to list events", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list events"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"events": events,
	}))
}
