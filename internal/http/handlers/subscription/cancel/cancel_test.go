package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// MockService реализует интерфейс cancel.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Cancel(ctx context.Context, account string) (models.Settlement, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(models.Settlement), args.Error(1)
}

func TestCancelHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		account        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешная отмена",
			account: "alice",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice").
					Return(models.Settlement{RefundPaid: 8_000_000, TaxPaid: 2_000_000}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"refund_paid":8000000`,
		},
		{
			name:           "аккаунт не указан",
			account:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
		{
			name:    "нет активной подписки",
			account: "bob",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "bob").
					Return(models.Settlement{}, engine.ErrNotSubscriber)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `no active subscription`,
		},
		{
			name:    "ошибка сервиса",
			account: "alice",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice").
					Return(models.Settlement{}, errors.New("transfer failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not cancel subscription`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/cancel", nil)
			if tt.account != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Account, tt.account))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
