package process

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/engine"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/models"
)

// MockService реализует интерфейс process.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessBatch(ctx context.Context, batchIndex uint64) (models.BatchResult, error) {
	args := m.Called(ctx, batchIndex)
	return args.Get(0).(models.BatchResult), args.Error(1)
}

func TestProcessHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		index          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "успешная обработка",
			index: "0",
			setupMock: func(m *MockService) {
				m.On("ProcessBatch", mock.Anything, uint64(0)).
					Return(models.BatchResult{
						BatchIndex:      0,
						ProcessedCount:  100,
						DayAdvanced:     false,
						CurrentBatchDay: 3,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"processed_count":100`,
		},
		{
			name:           "некорректный индекс",
			index:          "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid batch index`,
		},
		{
			name:  "индекс вне диапазона",
			index: "99",
			setupMock: func(m *MockService) {
				m.On("ProcessBatch", mock.Anything, uint64(99)).
					Return(models.BatchResult{}, engine.ErrBatchOutOfRange)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `out of range`,
		},
		{
			name:  "батч уже обработан",
			index: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessBatch", mock.Anything, uint64(1)).
					Return(models.BatchResult{}, engine.ErrBatchAlreadyProcessed)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `already processed`,
		},
		{
			name:  "день ещё не настал",
			index: "0",
			setupMock: func(m *MockService) {
				m.On("ProcessBatch", mock.Anything, uint64(0)).
					Return(models.BatchResult{}, engine.ErrDayTooSoon)
			},
			expectedStatus: http.StatusTooEarly,
			expectedBody:   `has not elapsed`,
		},
		{
			name:  "движок приостановлен",
			index: "0",
			setupMock: func(m *MockService) {
				m.On("ProcessBatch", mock.Anything, uint64(0)).
					Return(models.BatchResult{}, engine.ErrPaused)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `paused`,
		},
		{
			name:  "ошибка сервиса",
			index: "0",
			setupMock: func(m *MockService) {
				m.On("ProcessBatch", mock.Anything, uint64(0)).
					Return(models.BatchResult{}, errors.New("ticket service down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not process batch`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/batches/"+tt.index+"/process", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("index", tt.index)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
