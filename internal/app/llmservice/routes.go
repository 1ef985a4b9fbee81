// Package llmservice предоставляет маршруты для основного приложения.
package llmservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/llm-service/internal/http/handlers/admin/grant"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/admin/listusers"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/auth/token"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/message/create"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/message/history"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/subscription/subscribe"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/user/me"
	"github.com/magabrotheeeer/llm-service/internal/http/handlers/wallet/topup"
	"github.com/magabrotheeeer/llm-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/llm-service/internal/lib/jwt"
	dispatcherservice "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
	ledgerservice "github.com/magabrotheeeer/llm-service/internal/services/ledger"
	"github.com/magabrotheeeer/llm-service/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	db *repository.Storage, ledgerService *ledgerservice.LedgerService,
	dispatcherService *dispatcherservice.DispatcherService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/token", token.New(logger, db, jwtMaker).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/message", create.New(logger, dispatcherService).ServeHTTP)
			r.Get("/message/history", history.New(logger, dispatcherService).ServeHTTP)
			r.Post("/subscribe", subscribe.New(logger, ledgerService).ServeHTTP)
			r.Post("/wallet/topup", topup.New(logger, ledgerService).ServeHTTP)
			r.Get("/me", me.New(logger, db, ledgerService).ServeHTTP)
			r.Get("/admin/users", listusers.New(logger, db).ServeHTTP)
			r.Post("/admin/subscribe/{uid}", grant.New(logger, ledgerService, db).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
}
