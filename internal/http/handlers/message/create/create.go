// Package create реализует HTTP-обработчик отправки запроса к языковой модели.
//
// Handler принимает JSON с текстом запроса, проверяет активную подписку через
// диспетчер и дожидается ответа воркера в пределах таймаута. Если дедлайн
// истёк, возвращается 202 с заглушкой "Processing your request..." — это не
// ошибка с точки зрения вызывающего.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/http/response"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
	dispatcher "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
)

// Service описывает интерфейс диспетчера запросов.
type Service interface {
	Ask(ctx context.Context, userUID, content string) (*dispatcher.Result, error)
}

// Handler управляет HTTP-запросами на обращение к языковой модели.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP отправляет prompt пользователя и возвращает ответ модели.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.message.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.MessageRequest
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Ask(r.Context(), userUID, req.Content)
	switch {
	case errors.Is(err, models.ErrNoActiveSubscription):
		log.Info("access denied: no active subscription")
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("active subscription required, use /subscribe to get access"))
		return
	case errors.Is(err, models.ErrBrokerUnavailable):
		log.Error("broker unavailable", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("service temporarily unavailable, please try again"))
		return
	case err != nil:
		log.Error("failed to dispatch message", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process message"))
		return
	}

	if result.Pending {
		log.Info("reply still pending", sl.MsgID(result.MessageID))
		w.WriteHeader(http.StatusAccepted)
		render.JSON(w, r, response.OKWithData(map[string]any{
			"message_id": result.MessageID,
			"response":   result.Answer,
		}))
		return
	}

	log.Info("message answered", sl.MsgID(result.MessageID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message_id": result.MessageID,
		"response":   result.Answer,
	}))
}
