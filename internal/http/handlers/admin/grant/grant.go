// Package grant реализует административный HTTP-обработчик выдачи подписки
// пользователю без списания монет.
package grant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/http/response"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Service описывает выдачу подписки без движения монет.
type Service interface {
	Grant(ctx context.Context, userUID string) (*models.Subscription, error)
}

// Users описывает чтение пользователя из хранилища.
type Users interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Handler управляет HTTP-запросами на административную выдачу подписки.
type Handler struct {
	log     *slog.Logger
	service Service
	users   Users
}

// New создает новый Handler с переданными логгером и зависимостями.
func New(log *slog.Logger, service Service, users Users) *Handler {
	return &Handler{log: log, service: service, users: users}
}

// ServeHTTP выдаёт подписку пользователю {uid}; доступно только роли admin.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.grant"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if role != models.RoleAdmin {
		log.Error("admin access required", slog.String("role", role))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("admin access required"))
		return
	}

	targetUID := chi.URLParam(r, "uid")
	if targetUID == "" {
		log.Error("missing uid in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing uid in url"))
		return
	}

	if _, err := h.users.GetUser(r.Context(), targetUID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Error("user not found", slog.String("uid", targetUID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to read user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not grant subscription"))
		return
	}

	sub, err := h.service.Grant(r.Context(), targetUID)
	if err != nil {
		log.Error("failed to grant subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not grant subscription"))
		return
	}

	log.Info("subscription granted", slog.String("uid", targetUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_uid": targetUID,
		"end_date": sub.EndDate,
	}))
}
