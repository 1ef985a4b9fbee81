// Package history реализует HTTP-обработчик истории сообщений пользователя.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/http/response"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Service описывает чтение истории сообщений.
type Service interface {
	History(ctx context.Context, userUID string, limit int) ([]*models.Message, error)
}

// Handler управляет HTTP-запросами на чтение истории.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP возвращает историю сообщений пользователя, новые первыми.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.message.history"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.service.History(r.Context(), userUID, limit)
	if err != nil {
		log.Error("failed to read history", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read history"))
		return
	}

	type item struct {
		ID        int64  `json:"id"`
		Content   string `json:"content"`
		Response  string `json:"response"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	items := make([]item, 0, len(messages))
	for _, m := range messages {
		items = append(items, item{
			ID:        m.ID,
			Content:   m.Content,
			Response:  m.Response,
			Status:    m.Status,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	render.JSON(w, r, response.OKWithData(items))
}
