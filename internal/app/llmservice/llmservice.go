// Package llmservice собирает HTTP-приложение сервиса: хранилище, брокер,
// сервисы и маршруты, а также управляет жизненным циклом сервера.
package llmservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/llm-service/internal/broker"
	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/lib/jwt"
	"github.com/magabrotheeeer/llm-service/internal/migrations"
	dispatcherservice "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
	ledgerservice "github.com/magabrotheeeer/llm-service/internal/services/ledger"
	"github.com/magabrotheeeer/llm-service/internal/storage/repository"
)

// App приложение HTTP API с явным владением подключениями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	broker *broker.Broker
}

// New инициализирует зависимости приложения и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	b, err := broker.New(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	ledgerService := ledgerservice.NewLedgerService(db, b, logger, cfg.Billing)
	dispatcherService := dispatcherservice.NewDispatcherService(db, ledgerService, b, logger, cfg.Dispatcher)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, db, ledgerService, dispatcherService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		broker: b,
	}, nil
}

// Run запускает HTTP-сервер и корректно гасит его по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.broker.Close()
		_ = a.db.Close()
		return err
	}
}
