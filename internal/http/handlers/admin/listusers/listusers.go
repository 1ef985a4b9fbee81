// Package listusers реализует административный HTTP-обработчик списка пользователей.
package listusers

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

// Users описывает чтение списка пользователей из хранилища.
type Users interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Handler управляет HTTP-запросами на список пользователей.
type Handler struct {
	log   *slog.Logger
	users Users
}

// New создает новый Handler с переданными логгером и хранилищем.
func New(log *slog.Logger, users Users) *Handler {
	return &Handler{log: log, users: users}
}

// ServeHTTP возвращает всех пользователей; доступно только роли admin.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.listusers"
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

	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list users"))
		return
	}

	type item struct {
		UID        string `json:"uid"`
		TelegramID string `json:"telegram_id"`
		Role       string `json:"role"`
		Wallet     int    `json:"wallet"`
	}
	items := make([]item, 0, len(users))
	for _, u := range users {
		items = append(items, item{
			UID:        u.UID,
			TelegramID: u.TelegramID,
			Role:       u.Role,
			Wallet:     u.Wallet,
		})
	}

	render.JSON(w, r, response.OKWithData(items))
}
