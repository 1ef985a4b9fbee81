// Package telegrambot собирает процесс телеграм-бота: хранилище, брокер,
// сервисы и цикл получения обновлений long-polling-ом.
package telegrambot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/llm-service/internal/bot"
	"github.com/magabrotheeeer/llm-service/internal/broker"
	"github.com/magabrotheeeer/llm-service/internal/config"
	dispatcherservice "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
	ledgerservice "github.com/magabrotheeeer/llm-service/internal/services/ledger"
	"github.com/magabrotheeeer/llm-service/internal/storage/repository"
)

// App процесс телеграм-бота.
type App struct {
	api     *tgbotapi.BotAPI
	handler *bot.Handler
	logger  *slog.Logger
	db      *repository.Storage
	broker  *broker.Broker
}

// New инициализирует зависимости бота.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	b, err := broker.New(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		_ = b.Close()
		_ = db.Close()
		return nil, err
	}
	api.Debug = false

	ledgerService := ledgerservice.NewLedgerService(db, b, logger, cfg.Billing)
	dispatcherService := dispatcherservice.NewDispatcherService(db, ledgerService, b, logger, cfg.Dispatcher)
	handler := bot.NewHandler(api, logger, db, ledgerService, dispatcherService)

	return &App{
		api:     api,
		handler: handler,
		logger:  logger,
		db:      db,
		broker:  b,
	}, nil
}

// Run получает обновления до отмены ctx и закрывает подключения.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		_ = a.broker.Close()
		_ = a.db.Close()
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	a.logger.Info("telegram bot started", slog.String("username", a.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return nil
		case upd := <-updates:
			a.handler.HandleUpdate(ctx, upd)
		}
	}
}
