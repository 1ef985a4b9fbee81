// Package token реализует HTTP-обработчик выпуска токена доступа.
//
// Пользователь идентифицируется внешним telegram id и создаётся при первом
// обращении; обработчик возвращает подписанный JWT с uid и ролью.
package token

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/llm-service/internal/http/response"
	"github.com/magabrotheeeer/llm-service/internal/lib/jwt"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Users описывает создание/поиск пользователя по внешнему идентификатору.
type Users interface {
	GetOrCreateUser(ctx context.Context, telegramID string) (*models.User, error)
}

// Handler управляет HTTP-запросами на выпуск токена доступа.
type Handler struct {
	log      *slog.Logger
	users    Users
	maker    jwt.Maker
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером, хранилищем и maker-ом токенов.
func New(log *slog.Logger, users Users, maker jwt.Maker) *Handler {
	return &Handler{
		log:      log,
		users:    users,
		maker:    maker,
		validate: validator.New(),
	}
}

// ServeHTTP выпускает токен доступа для пользователя с указанным telegram id.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.token"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.TokenRequest
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

	user, err := h.users.GetOrCreateUser(r.Context(), req.TelegramID)
	if err != nil {
		log.Error("failed to get or create user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not register user"))
		return
	}

	tokenStr, err := h.maker.GenerateToken(user.UID, user.TelegramID, user.Role)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not issue token"))
		return
	}

	log.Info("token issued", slog.String("user_uid", user.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"access_token": tokenStr,
		"token_type":   "bearer",
	}))
}
