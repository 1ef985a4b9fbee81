// Package subscribe реализует HTTP-обработчик покупки подписки за монеты кошелька.
//
// При нехватке монет возвращается 402 с требуемой и доступной суммами,
// при уже активной подписке — 400.
package subscribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/http/response"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Service описывает интерфейс бизнес-логики покупки подписки.
type Service interface {
	Subscribe(ctx context.Context, userUID string) (*models.DebitResult, error)
}

// Handler управляет HTTP-запросами на покупку подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP списывает стоимость подписки и возвращает новый баланс и дату окончания.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"
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

	result, err := h.service.Subscribe(r.Context(), userUID)
	var insufficient *models.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		log.Info("insufficient funds",
			slog.Int("required", insufficient.Required),
			slog.Int("available", insufficient.Available))
		w.WriteHeader(http.StatusPaymentRequired)
		render.JSON(w, r, response.Error(fmt.Sprintf(
			"insufficient funds: required %d coins, available %d",
			insufficient.Required, insufficient.Available)))
		return
	case errors.Is(err, models.ErrActiveSubscriptionExists):
		log.Info("active subscription already exists")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("active subscription already exists"))
		return
	case err != nil:
		log.Error("failed to purchase subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not purchase subscription"))
		return
	}

	log.Info("subscription purchased", slog.Int("cost", result.Cost))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"cost":        result.Cost,
		"new_balance": result.NewBalance,
		"end_date":    result.EndDate,
	}))
}
