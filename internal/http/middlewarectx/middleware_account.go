package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/response"
)

// AccountHeader заголовок, в котором клиент передаёт свой токен-аккаунт.
const AccountHeader = "X-Account"

// AccountMiddleware извлекает токен-аккаунт подписчика из заголовка X-Account
// и кладёт его в контекст запроса. Запросы без заголовка отклоняются с 401.
func AccountMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AccountMiddleware"

			account := r.Header.Get(AccountHeader)
			if account == "" {
				log.Error("account header missing",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("account header missing"))
				return
			}

			ctx := context.WithValue(r.Context(), Account, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
