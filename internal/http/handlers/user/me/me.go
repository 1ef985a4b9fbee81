// Package me реализует HTTP-обработчик профиля текущего пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/http/response"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Users описывает чтение пользователя из хранилища.
type Users interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Access описывает проверку активной подписки.
type Access interface {
	HasActiveSubscription(ctx context.Context, userUID string) (bool, error)
}

// Handler управляет HTTP-запросами на чтение профиля.
type Handler struct {
	log    *slog.Logger
	users  Users
	access Access
}

// New создает новый Handler с переданными логгером и зависимостями.
func New(log *slog.Logger, users Users, access Access) *Handler {
	return &Handler{log: log, users: users, access: access}
}

// ServeHTTP возвращает профиль: telegram id, роль, баланс и статус подписки.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.me"
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

	user, err := h.users.GetUser(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read user"))
		return
	}

	active, err := h.access.HasActiveSubscription(r.Context(), userUID)
	if err != nil {
		log.Error("failed to check subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read user"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"telegram_id":         user.TelegramID,
		"role":                user.Role,
		"wallet":              user.Wallet,
		"active_subscription": active,
	}))
}
