package create

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

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/models"
	dispatcher "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Ask(ctx context.Context, userUID, content string) (*dispatcher.Result, error) {
	args := m.Called(ctx, userUID, content)
	if res := args.Get(0); res != nil {
		return res.(*dispatcher.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешный ответ модели",
			body:    `{"content":"what is Go?"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Ask", mock.Anything, "u1", "what is Go?").
					Return(&dispatcher.Result{MessageID: 5, Answer: "a language"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"response":"a language"`,
		},
		{
			name:    "дедлайн истёк, ответ ещё обрабатывается",
			body:    `{"content":"slow question"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Ask", mock.Anything, "u1", "slow question").
					Return(&dispatcher.Result{MessageID: 6, Answer: dispatcher.StillProcessingText, Pending: true}, nil)
			},
			expectedStatus: http.StatusAccepted,
			expectedBody:   `"response":"Processing your request..."`,
		},
		{
			name:    "нет активной подписки",
			body:    `{"content":"question"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Ask", mock.Anything, "u1", "question").
					Return(nil, models.ErrNoActiveSubscription)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"active subscription required, use /subscribe to get access"`,
		},
		{
			name:    "брокер недоступен",
			body:    `{"content":"question"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Ask", mock.Anything, "u1", "question").
					Return(nil, models.ErrBrokerUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"error":"service temporarily unavailable, please try again"`,
		},
		{
			name:           "пустой content не проходит валидацию",
			body:           `{"content":""}`,
			userUID:        "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Content is a required field`,
		},
		{
			name:           "некорректное тело запроса",
			body:           `{not json`,
			userUID:        "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "нет uid в контексте",
			body:           `{"content":"question"}`,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:    "внутренняя ошибка диспетчера",
			body:    `{"content":"question"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Ask", mock.Anything, "u1", "question").
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not process message"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(tt.body))
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
