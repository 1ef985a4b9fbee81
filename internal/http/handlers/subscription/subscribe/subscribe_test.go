package subscribe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// MockService реализует интерфейс subscribe.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Subscribe(ctx context.Context, userUID string) (*models.DebitResult, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.DebitResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSubscribeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешная покупка подписки",
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1").
					Return(&models.DebitResult{
						NewBalance: 100,
						Cost:       300,
						EndDate:    time.Date(2026, 9, 27, 0, 0, 0, 0, time.UTC),
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"new_balance":100`,
		},
		{
			name:    "недостаточно монет",
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1").
					Return(nil, &models.InsufficientFundsError{Required: 300, Available: 20})
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   `"error":"insufficient funds: required 300 coins, available 20"`,
		},
		{
			name:    "подписка уже активна",
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1").
					Return(nil, models.ErrActiveSubscriptionExists)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"active subscription already exists"`,
		},
		{
			name:           "нет uid в контексте",
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:    "ошибка хранилища",
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not purchase subscription"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscribe", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
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
